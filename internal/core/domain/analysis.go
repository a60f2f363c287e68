package domain

import (
	"strings"
	"time"
)

// FindingStatus is the severity attached to a finding or a whole analysis.
type FindingStatus string

// Finding severities, in increasing order of concern.
const (
	FindingNormal  FindingStatus = "NORMAL"
	FindingMonitor FindingStatus = "MONITOR"
	FindingUrgent  FindingStatus = "URGENT"
)

// ParseFindingStatus converts a severity name into a FindingStatus.
// Unrecognised values are treated as NORMAL, which is how results are
// rendered when the analyser omits a severity.
func ParseFindingStatus(raw string) FindingStatus {
	switch s := FindingStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case FindingMonitor, FindingUrgent:
		return s
	default:
		return FindingNormal
	}
}

// Severity returns 0 for NORMAL, 1 for MONITOR and 2 for URGENT.
func (s FindingStatus) Severity() int {
	switch s {
	case FindingUrgent:
		return 2
	case FindingMonitor:
		return 1
	default:
		return 0
	}
}

// String returns the string representation.
func (s FindingStatus) String() string {
	return string(s)
}

// Finding is one test result extracted from a document.
type Finding struct {
	TestName             string
	Value                string
	NormalRange          string
	Status               FindingStatus
	PlainEnglish         string
	WhatItMeans          string
	ClinicalSignificance string
	Recommendations      []string
}

// QuestionPriority ranks a suggested question for the doctor.
type QuestionPriority string

// Question priorities.
const (
	PriorityUrgent    QuestionPriority = "URGENT"
	PriorityImportant QuestionPriority = "IMPORTANT"
	PriorityFollowUp  QuestionPriority = "FOLLOWUP"
)

// ParseQuestionPriority converts a priority name, defaulting to FOLLOWUP.
func ParseQuestionPriority(raw string) QuestionPriority {
	switch p := QuestionPriority(strings.ToUpper(strings.TrimSpace(raw))); p {
	case PriorityUrgent, PriorityImportant:
		return p
	default:
		return PriorityFollowUp
	}
}

// Question is a suggested question to raise with a doctor.
type Question struct {
	Question string
	Priority QuestionPriority
	Category string
}

// AnalysisResult is the aggregate analysis for one document.
// It is owned by the analysis cache, keyed by DocumentID.
type AnalysisResult struct {
	// DocumentID identifies the analysed document.
	DocumentID string

	// DocumentType is the backend's classification of the document.
	DocumentType string

	// ProcessedAt is when the backend finished the analysis.
	ProcessedAt time.Time

	// Findings are the extracted test results, in report order.
	Findings []Finding

	// OverallStatus is the most severe status across the report.
	OverallStatus FindingStatus

	// OverallSummary is a plain-language summary of the report.
	OverallSummary string

	// NormalCount, MonitorCount and UrgentCount tally findings by status.
	NormalCount  int
	MonitorCount int
	UrgentCount  int

	// Questions are suggested questions for the doctor.
	Questions []Question
}

// Tally recomputes the per-status counts from the findings.
func (a *AnalysisResult) Tally() {
	a.NormalCount, a.MonitorCount, a.UrgentCount = 0, 0, 0
	for i := range a.Findings {
		switch a.Findings[i].Status {
		case FindingUrgent:
			a.UrgentCount++
		case FindingMonitor:
			a.MonitorCount++
		default:
			a.NormalCount++
		}
	}
}

// WorstStatus returns the most severe finding status, or NORMAL.
func (a *AnalysisResult) WorstStatus() FindingStatus {
	worst := FindingNormal
	for i := range a.Findings {
		if a.Findings[i].Status.Severity() > worst.Severity() {
			worst = a.Findings[i].Status
		}
	}
	return worst
}

// Clone returns a deep copy so cached results cannot be mutated by readers.
func (a *AnalysisResult) Clone() *AnalysisResult {
	if a == nil {
		return nil
	}
	out := *a
	out.Findings = make([]Finding, len(a.Findings))
	for i, f := range a.Findings {
		f.Recommendations = append([]string(nil), f.Recommendations...)
		out.Findings[i] = f
	}
	out.Questions = append([]Question(nil), a.Questions...)
	return &out
}

// TrendPoint is one historical value of a test.
type TrendPoint struct {
	Date       time.Time
	Value      *float64
	ValueText  string
	Status     FindingStatus
	DocumentID string
}

// TrendReport describes how a test's values changed across documents.
// When no test name was requested, only AvailableTests is populated.
type TrendReport struct {
	TestName         string
	Points           []TrendPoint
	Direction        string
	PercentageChange *float64
	AvailableTests   []string
}
