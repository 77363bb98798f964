package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"

	"fontana/internal/catalog"
	"fontana/internal/keywords"
	"fontana/internal/store"
	"fontana/internal/textutil"
)

// Document is one importer record: a catalog entry mapped onto item fields
// plus the raw keyword fields of its source.
type Document struct {
	Collection  store.Collection   `json:"collection"`
	Library     string             `json:"library,omitempty"`
	RecordID    string             `json:"record_id"`
	Title       TitleFields        `json:"title"`
	AltTitles   []string           `json:"alternative_titles,omitempty"`
	ItemTypes   []string           `json:"item_type,omitempty"`
	Forms       []string           `json:"form,omitempty"`
	Identifiers []store.Identifier `json:"identifiers,omitempty"`
	Creator     string             `json:"creator,omitempty"`
	DateIssued  string             `json:"date_issued,omitempty"`
	CoverURL    string             `json:"cover_url,omitempty"`
	ChangeDate  string             `json:"record_change_date,omitempty"`
	Evergreen   *EvergreenKeywords `json:"evergreen_keywords,omitempty"`
	Overdrive   *OverdriveKeywords `json:"overdrive_keywords,omitempty"`
}

// TitleFields are MODS-style title parts.
type TitleFields struct {
	NonSort    string `json:"non_sort,omitempty"`
	Title      string `json:"title"`
	SubTitle   string `json:"sub_title,omitempty"`
	PartNumber string `json:"part_number,omitempty"`
	PartName   string `json:"part_name,omitempty"`
}

// EvergreenKeywords are the comma separated MARC keyword fields.
type EvergreenKeywords struct {
	MarcGenre     string `json:"marc_genre,omitempty"`
	OtherGenre    string `json:"other_genre,omitempty"`
	MarcAudience  string `json:"marc_audience,omitempty"`
	OtherAudience string `json:"other_audience,omitempty"`
	Topic         string `json:"topic,omitempty"`
	DDC           string `json:"ddc,omitempty"`
	SeriesLabel   string `json:"series,omitempty"`
}

// OverdriveKeywords are the lending platform keyword fields.
type OverdriveKeywords struct {
	Subjects []string `json:"subjects,omitempty"`
	Interest []string `json:"interest_levels,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Grade    []string `json:"grade_levels,omitempty"`
	ATOS     string   `json:"atos,omitempty"`
	Lexile   string   `json:"lexile,omitempty"`
}

// ReadDocument decodes an import document from path.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read import document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode import document: %w", err)
	}
	return doc, nil
}

// Buckets derives keyword buckets from whichever source fields are present.
func (d Document) Buckets() keywords.Buckets {
	var out keywords.Buckets
	if f := d.Evergreen; f != nil {
		out = out.Merge(keywords.FromEvergreen(keywords.EvergreenFields{
			MarcGenre:     f.MarcGenre,
			OtherGenre:    f.OtherGenre,
			MarcAudience:  f.MarcAudience,
			OtherAudience: f.OtherAudience,
			Topic:         f.Topic,
			DDC:           f.DDC,
			SeriesLabel:   f.SeriesLabel,
		}))
	}
	if f := d.Overdrive; f != nil {
		out = out.Merge(keywords.FromOverdrive(keywords.OverdriveFields{
			Subjects: f.Subjects,
			Interest: f.Interest,
			Keywords: f.Keywords,
			Grade:    f.Grade,
			ATOS:     f.ATOS,
			Lexile:   f.Lexile,
		}))
	}
	return out
}

func (d Document) validate() error {
	var problems []string
	if d.Collection != store.CollectionEvergreen && d.Collection != store.CollectionOverdrive {
		problems = append(problems, fmt.Sprintf("unknown collection %q", d.Collection))
	}
	if strings.TrimSpace(d.RecordID) == "" {
		problems = append(problems, "record_id is required")
	}
	if d.Collection == store.CollectionOverdrive && strings.TrimSpace(d.Library) == "" {
		problems = append(problems, "library is required for overdrive records")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Import is the importer hook. A record seen for the first time is created
// as a draft and reconciled with ModeImport. A known record is reconciled
// with ModeUpdate against its change date and only its change date and
// holdings move: title, keywords and the other document fields are not
// copied over, so reviewer edits survive re-imports. record is an optional
// pre-fetched catalog answer.
func (r *Reconciler) Import(ctx context.Context, doc Document, record catalog.Record) (Result, error) {
	if err := doc.validate(); err != nil {
		return Result{}, fmt.Errorf("invalid import document: %w", err)
	}
	recordID := strings.TrimSpace(doc.RecordID)
	existing, err := r.store.FindItemByRecord(ctx, doc.Collection, recordID)
	if err != nil {
		return Result{}, fmt.Errorf("find item: %w", err)
	}
	if existing != nil {
		return r.Reconcile(ctx, Request{
			ItemID:     existing.ID,
			Record:     record,
			Mode:       ModeUpdate,
			ChangeDate: doc.ChangeDate,
		})
	}

	termKeys, err := doc.Buckets().Encode()
	if err != nil {
		return Result{}, fmt.Errorf("encode keywords: %w", err)
	}
	item := &store.Item{
		Title: textutil.FormatTitle(textutil.TitleParts{
			NonSort:    doc.Title.NonSort,
			Title:      doc.Title.Title,
			SubTitle:   doc.Title.SubTitle,
			PartNumber: doc.Title.PartNumber,
			PartName:   doc.Title.PartName,
		}),
		Collection:       doc.Collection,
		Library:          strings.ToLower(strings.TrimSpace(doc.Library)),
		RecordID:         recordID,
		Status:           store.StatusDraft,
		ItemTypes:        doc.ItemTypes,
		Forms:            doc.Forms,
		Identifiers:      doc.Identifiers,
		AltTitles:        doc.AltTitles,
		Creator:          doc.Creator,
		DateIssued:       doc.DateIssued,
		PartNumber:       doc.Title.PartNumber,
		CoverURL:         doc.CoverURL,
		RecordChangeDate: textutil.FormatDate(doc.ChangeDate, r.now()),
		TermKeysJSON:     termKeys,
	}
	created, err := r.store.CreateItem(ctx, item)
	if err != nil {
		return Result{}, fmt.Errorf("create item: %w", err)
	}
	return r.Reconcile(ctx, Request{ItemID: created.ID, Record: record, Mode: ModeImport})
}
