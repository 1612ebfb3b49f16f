package intake

// Version is the library version. Release builds override it via
// -ldflags "-X github.com/meridianhealth/intake.Version=...".
var Version = "0.1.0-dev"
