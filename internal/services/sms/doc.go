// Package sms sends text messages through a third-party HTTP gateway and
// fans a message out to many recipients.
package sms
