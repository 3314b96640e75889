package memory

import (
	"github.com/medscribe-lab/medscribe/pkg/domain/interfaces"
)

// Memory is an in-memory Repository implementation for development and tests.
type Memory struct {
	transcript *transcriptRepository
	extraction *extractionRepository
	vector     *vectorRepository
}

var _ interfaces.Repository = &Memory{}

// New creates a new in-memory repository
func New() *Memory {
	return &Memory{
		transcript: newTranscriptRepository(),
		extraction: newExtractionRepository(),
		vector:     newVectorRepository(),
	}
}

func (m *Memory) Transcript() interfaces.TranscriptRepository {
	return m.transcript
}

func (m *Memory) Extraction() interfaces.ExtractionRepository {
	return m.extraction
}

func (m *Memory) Vector() interfaces.VectorRepository {
	return m.vector
}

func (m *Memory) Close() error {
	return nil
}
