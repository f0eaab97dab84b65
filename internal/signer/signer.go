package signer

// Signer interface for signing repository metadata
type Signer interface {
	// SignCleartext creates a cleartext signature (for InRelease)
	SignCleartext(data []byte) ([]byte, error)

	// SignDetached creates a binary detached signature (for Release.gpg)
	SignDetached(data []byte) ([]byte, error)

	// GetPublicKey returns the armored public key
	GetPublicKey() ([]byte, error)
}
