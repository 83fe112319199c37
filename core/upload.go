package core

// UploadService persists uploaded payloads and hands back a stable reference
// string that can later be stored as a material resource.
type UploadService interface {
	// Save stores `data` under a reference derived from `filename` and
	// returns that reference.
	Save(filename string, data []byte) (string, error)
	// Open returns the payload previously stored under `ref`.
	Open(ref string) ([]byte, error)
	// Remove discards the payload stored under `ref`; unknown refs are not
	// an error.
	Remove(ref string) error
}
