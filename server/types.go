package server

import (
	"github.com/hupe1980/genohdc"
	"github.com/hupe1980/genohdc/hypervector"
	"github.com/hupe1980/genohdc/index"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// SimilarityRequest compares two vectors.
type SimilarityRequest struct {
	Vector1    hypervector.Hypervector `json:"vector1"`
	Vector2    hypervector.Hypervector `json:"vector2"`
	Metric     string                  `json:"metric"`
	Confidence bool                    `json:"confidence"`
}

// SearchRequest ranks a database against one query.
type SearchRequest struct {
	Query     hypervector.Hypervector `json:"query"`
	Database  []index.Record          `json:"database,omitempty"`
	TopK      *int                    `json:"top_k,omitempty"`
	Threshold *float64                `json:"threshold,omitempty"`
	Metric    string                  `json:"metric"`
	Tags      []string                `json:"tags,omitempty"`
}

// SearchResponse lists ranked matches.
type SearchResponse struct {
	Results []genohdc.SearchResult `json:"results"`
}

// BatchRequest ranks a database against many queries.
type BatchRequest struct {
	Queries   []genohdc.Query `json:"queries" binding:"required,min=1"`
	Database  []index.Record  `json:"database,omitempty"`
	TopK      *int            `json:"top_k,omitempty"`
	Threshold *float64        `json:"threshold,omitempty"`
	Metric    string          `json:"metric"`
}

// BatchResponse holds per-query results in query order. Failed counts the
// queries whose result carries an error.
type BatchResponse struct {
	Results []genohdc.BatchResult `json:"results"`
	Failed  int                   `json:"failed,omitempty"`
}

// MatrixRequest compares every pair of vectors.
type MatrixRequest struct {
	Vectors   []genohdc.Query `json:"vectors" binding:"required,min=2"`
	Metric    string          `json:"metric"`
	Threshold *float64        `json:"threshold,omitempty"`
}

// MatrixResponse lists pairs, most similar first.
type MatrixResponse struct {
	Pairs []genohdc.MatrixEntry `json:"pairs"`
}

// AnalyzeRequest describes one vector.
type AnalyzeRequest struct {
	Vector hypervector.Hypervector `json:"vector"`
}

// EncodeDNARequest encodes one sequence.
type EncodeDNARequest struct {
	Sequence string `json:"sequence" binding:"required"`
	K        int    `json:"k" binding:"omitempty,gte=1,lte=32"`
}

// EncodeDNAResponse is an encoded sequence.
type EncodeDNAResponse struct {
	Vector         hypervector.Hypervector `json:"vector"`
	KmerCount      int                     `json:"kmer_count"`
	KmerLength     int                     `json:"kmer_length"`
	SequenceLength int                     `json:"sequence_length"`
	Skipped        int                     `json:"skipped"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string `json:"status"`
	Dimension int    `json:"dimension"`
	Entries   int    `json:"entries"`
}
