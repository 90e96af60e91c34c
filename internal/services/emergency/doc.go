// Package emergency tracks residents' emergency requests through response
// and sends SMS alerts to a barangay.
package emergency
