package version

// Version is overridden at build time with -ldflags "-X dial-go/internal/version.Version=...".
var Version = "dev"
