package domain

// BootstrapData describes the first administrator created on an empty store.
type BootstrapData struct {
	Email        string
	Name         string
	Password     string
	Organization string
}
