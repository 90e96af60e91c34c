// Package assistant answers residents' questions from their barangay's
// announcements, officials, forum threads and document catalog using
// embedding search and a generative model.
package assistant
