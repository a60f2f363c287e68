// Package domain defines the core business entities for Patiently.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - DocumentRecord: A submitted medical document and its processing status
//   - AnalysisResult: Findings, summary and questions produced for a document
//   - OrchestrationState: The client-side view of documents, selection and polls
//   - Settings: Client configuration with defaults
//
// State mutations are expressed as pure transition functions over
// DocumentRecord slices so they can be tested without any rendering layer.
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
