// Package bot turns inbound chat messages into replies.
//
// A photo's caption is parsed and checked; accepted commands run against
// the downloaded image and the result is sent back. Multi-image effects
// park the captioned photo in the session cache until the next photo of
// the same album arrives. Documents, help requests and other text get
// canned replies.
package bot
