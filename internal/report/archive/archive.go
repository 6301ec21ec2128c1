// Package archive indexes assembled reports in Elasticsearch for later analysis.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"report-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Archive stores report summaries. Index is best-effort from the caller's point of view.
type Archive interface {
	Index(ctx context.Context, id string, rc *models.ReportContext) error
	Search(ctx context.Context, industry string, size int) ([]Document, error)
}

// Document is the indexed summary; section HTML is not stored.
type Document struct {
	ID              string              `json:"id"`
	Language        string              `json:"language"`
	Industry        string              `json:"industry"`
	CompanySize     string              `json:"company_size"`
	ScorePercent    float64             `json:"score_percent"`
	ReadinessLevel  string              `json:"readiness_level"`
	SelfEmployed    bool                `json:"self_employed"`
	KPI             models.KPI          `json:"kpi"`
	BusinessCase    models.BusinessCase `json:"business_case"`
	QualityLevel    string              `json:"quality_level,omitempty"`
	QualityScore    float64             `json:"quality_score,omitempty"`
	FailedChapters  []string            `json:"failed_chapters,omitempty"`
	FallbackContent bool                `json:"fallback_content"`
	CreatedAt       time.Time           `json:"created_at"`
}

type ElasticsearchArchive struct {
	client *elasticsearch.Client
	index  string
	now    func() time.Time
}

func NewElasticsearchArchive(client *elasticsearch.Client, index string) *ElasticsearchArchive {
	return &ElasticsearchArchive{client: client, index: index, now: time.Now}
}

// NewDocument condenses a report context.
func NewDocument(id string, rc *models.ReportContext, now time.Time) Document {
	doc := Document{
		ID:             id,
		Language:       rc.Language,
		Industry:       rc.Industry,
		CompanySize:    rc.CompanySize,
		ScorePercent:   rc.ScorePercent,
		ReadinessLevel: rc.ReadinessLevel,
		SelfEmployed:   rc.IsSelfEmployed,
		KPI:            rc.KPI,
		BusinessCase:   rc.BusinessCase,
		CreatedAt:      now.UTC(),
	}
	if rc.QualityBadge != nil {
		doc.QualityLevel = string(rc.QualityBadge.Level)
		doc.QualityScore = rc.QualityBadge.Score
	}
	for _, ch := range rc.Chapters {
		if ch.Failed() {
			doc.FailedChapters = append(doc.FailedChapters, string(ch.Chapter))
		}
		if ch.Fallback {
			doc.FallbackContent = true
		}
	}
	return doc
}

func (a *ElasticsearchArchive) Index(ctx context.Context, id string, rc *models.ReportContext) error {
	body, err := json.Marshal(NewDocument(id, rc, a.now()))
	if err != nil {
		return fmt.Errorf("encode archive document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      a.index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, a.client)
	if err != nil {
		return fmt.Errorf("index report %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index report %s failed: %s", id, res.String())
	}
	return nil
}

// Search returns the newest documents, optionally filtered by industry.
func (a *ElasticsearchArchive) Search(ctx context.Context, industry string, size int) ([]Document, error) {
	if size <= 0 {
		size = 20
	}
	query := map[string]interface{}{"match_all": map[string]interface{}{}}
	if industry != "" {
		query = map[string]interface{}{
			"term": map[string]interface{}{"industry": industry},
		}
	}
	body, _ := json.Marshal(map[string]interface{}{
		"query": query,
		"size":  size,
		"sort":  []interface{}{map[string]interface{}{"created_at": map[string]string{"order": "desc"}}},
	})

	req := esapi.SearchRequest{
		Index: []string{a.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, a.client)
	if err != nil {
		return nil, fmt.Errorf("search archive: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search archive failed: %s", res.String())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode archive search: %w", err)
	}

	docs := make([]Document, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}
