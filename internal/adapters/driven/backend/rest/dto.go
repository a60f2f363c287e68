package rest

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
)

// listResponse is the GET /documents response format.
type listResponse struct {
	Documents []documentDTO `json:"documents"`
}

// documentDTO is one entry of the document list.
type documentDTO struct {
	DocumentID    string  `json:"document_id"`
	Filename      string  `json:"filename"`
	FileType      string  `json:"file_type"`
	UploadTime    string  `json:"upload_time"`
	Status        string  `json:"status"`
	ProcessedTime *string `json:"processed_time"`
	DocumentType  *string `json:"document_type"`
}

// uploadResponse is the POST /upload response format.
type uploadResponse struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// analysisResponse is the GET /document/{id}/analysis response format.
// Older backends return the report fields at the top level instead of
// nesting them under "analysis".
type analysisResponse struct {
	DocumentID   string        `json:"document_id"`
	DocumentType string        `json:"document_type"`
	ProcessedAt  string        `json:"processed_at"`
	Analysis     *analysisDTO  `json:"analysis"`
	Questions    []questionDTO `json:"questions"`
	analysisDTO
}

// analysisDTO carries the report body.
type analysisDTO struct {
	Findings             []findingDTO `json:"findings"`
	OverallStatus        string       `json:"overall_status"`
	OverallSummary       string       `json:"overall_summary"`
	NormalFindingsCount  *int         `json:"normal_findings_count"`
	MonitorFindingsCount *int         `json:"monitor_findings_count"`
	UrgentFindingsCount  *int         `json:"urgent_findings_count"`
}

type findingDTO struct {
	TestName             string     `json:"test_name"`
	Value                flexString `json:"value"`
	NormalRange          flexString `json:"normal_range"`
	Status               string     `json:"status"`
	PlainEnglish         string     `json:"plain_english"`
	WhatItMeans          string     `json:"what_it_means"`
	ClinicalSignificance string     `json:"clinical_significance"`
	Recommendations      []string   `json:"recommendations"`
}

type questionDTO struct {
	Question string `json:"question"`
	Priority string `json:"priority"`
	Category string `json:"category"`
}

// trendsResponse is the GET /document/{id}/trends response format.
type trendsResponse struct {
	TestName         string          `json:"test_name"`
	DataPoints       []trendPointDTO `json:"data_points"`
	TrendDirection   string          `json:"trend_direction"`
	PercentageChange *float64        `json:"percentage_change"`
	AvailableTests   []string        `json:"available_tests"`
	Error            string          `json:"error"`
}

type trendPointDTO struct {
	Date       string     `json:"date"`
	Value      *float64   `json:"value"`
	ValueText  flexString `json:"value_text"`
	Status     string     `json:"status"`
	DocumentID string     `json:"document_id"`
}

// errorResponse is the body of a FastAPI HTTPException.
type errorResponse struct {
	Detail string `json:"detail"`
}

// flexString accepts a JSON string, number or null.
// Analysers report values such as 5.4 or "5.4 mmol/L" interchangeably.
type flexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// statusFromWire maps backend status names onto client statuses.
// "uploaded" means accepted but not started.
func statusFromWire(raw string) domain.Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "uploaded", "pending", "queued":
		return domain.StatusPending
	case "processing":
		return domain.StatusProcessing
	case "completed":
		return domain.StatusCompleted
	case "failed":
		return domain.StatusFailed
	default:
		s, _ := domain.ParseStatus(raw)
		return s
	}
}

// timeLayouts are tried in order. Python's isoformat omits the zone for
// naive timestamps; those are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t
		}
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Unix(int64(secs), 0).UTC()
	}
	return time.Time{}
}

func (d documentDTO) toDomain() domain.DocumentRecord {
	rec := domain.DocumentRecord{
		ID:         d.DocumentID,
		Filename:   d.Filename,
		FileType:   d.FileType,
		UploadTime: parseTime(d.UploadTime),
		Status:     statusFromWire(d.Status),
	}
	if d.DocumentType != nil {
		rec.DocumentType = *d.DocumentType
	}
	return rec
}

// toDomain builds an AnalysisResult. ok is false when the payload carries
// no report at all.
func (r analysisResponse) toDomain(id string) (*domain.AnalysisResult, bool) {
	body := r.Analysis
	if body == nil {
		if r.analysisDTO.Findings == nil && r.analysisDTO.OverallStatus == "" {
			return nil, false
		}
		body = &r.analysisDTO
	}

	result := &domain.AnalysisResult{
		DocumentID:     r.DocumentID,
		DocumentType:   r.DocumentType,
		ProcessedAt:    parseTime(r.ProcessedAt),
		OverallStatus:  domain.ParseFindingStatus(body.OverallStatus),
		OverallSummary: body.OverallSummary,
		Findings:       make([]domain.Finding, 0, len(body.Findings)),
		Questions:      make([]domain.Question, 0, len(r.Questions)),
	}
	if result.DocumentID == "" {
		result.DocumentID = id
	}

	for _, f := range body.Findings {
		result.Findings = append(result.Findings, domain.Finding{
			TestName:             f.TestName,
			Value:                string(f.Value),
			NormalRange:          string(f.NormalRange),
			Status:               domain.ParseFindingStatus(f.Status),
			PlainEnglish:         f.PlainEnglish,
			WhatItMeans:          f.WhatItMeans,
			ClinicalSignificance: f.ClinicalSignificance,
			Recommendations:      f.Recommendations,
		})
	}
	for _, q := range r.Questions {
		result.Questions = append(result.Questions, domain.Question{
			Question: q.Question,
			Priority: domain.ParseQuestionPriority(q.Priority),
			Category: q.Category,
		})
	}

	if body.NormalFindingsCount == nil || body.MonitorFindingsCount == nil || body.UrgentFindingsCount == nil {
		result.Tally()
	} else {
		result.NormalCount = *body.NormalFindingsCount
		result.MonitorCount = *body.MonitorFindingsCount
		result.UrgentCount = *body.UrgentFindingsCount
	}
	if body.OverallStatus == "" {
		result.OverallStatus = result.WorstStatus()
	}
	return result, true
}

func (r trendsResponse) toDomain(testName string) *domain.TrendReport {
	report := &domain.TrendReport{
		TestName:         r.TestName,
		Direction:        r.TrendDirection,
		PercentageChange: r.PercentageChange,
		AvailableTests:   r.AvailableTests,
	}
	if report.TestName == "" {
		report.TestName = testName
	}
	for _, p := range r.DataPoints {
		report.Points = append(report.Points, domain.TrendPoint{
			Date:       parseTime(p.Date),
			Value:      p.Value,
			ValueText:  string(p.ValueText),
			Status:     domain.ParseFindingStatus(p.Status),
			DocumentID: p.DocumentID,
		})
	}
	return report
}
