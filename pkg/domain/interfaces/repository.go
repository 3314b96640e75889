package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Transcript() TranscriptRepository
	Extraction() ExtractionRepository
	Vector() VectorRepository

	Close() error
}
