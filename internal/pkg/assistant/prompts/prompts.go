// Package prompts holds the studio's Greek prompt texts, embedded at build
// time so deployments never depend on working-directory layout.
package prompts

import _ "embed"

//go:embed classification.txt
var Classification string

//go:embed system_default.txt
var SystemDefault string

//go:embed pricing.txt
var Pricing string

//go:embed booking.txt
var Booking string

//go:embed information.txt
var Information string

//go:embed follow_up.txt
var FollowUp string

//go:embed vision.txt
var Vision string
