package evergreen

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"fontana/internal/catalog"
)

type holdingsXML struct {
	ID      string      `xml:"id,attr"`
	Counts  []countXML  `xml:"counts>count"`
	Volumes []volumeXML `xml:"volumes>volume"`
}

type feedXML struct {
	Holdings []holdingsXML `xml:"holdings"`
}

type countXML struct {
	Count int    `xml:"count,attr"`
	Depth string `xml:"depth,attr"`
}

type volumeXML struct {
	Copies []copyXML `xml:"copies>copy"`
}

type copyXML struct {
	Barcode  string   `xml:"barcode,attr"`
	CopyID   string   `xml:"copy_id,attr"`
	Deleted  string   `xml:"deleted,attr"`
	Status   identXML `xml:"status"`
	Location identXML `xml:"location"`
	CircLib  struct {
		Shortname string `xml:"shortname,attr"`
	} `xml:"circ_lib"`
}

type identXML struct {
	Ident string `xml:"ident,attr"`
}

func parseRecord(body []byte) (catalog.EvergreenRecord, error) {
	var doc holdingsXML
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&doc); err != nil {
		return catalog.EvergreenRecord{}, err
	}
	return doc.record()
}

func parseFeed(body []byte) ([]catalog.EvergreenRecord, error) {
	var feed feedXML
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&feed); err != nil {
		return nil, err
	}
	records := make([]catalog.EvergreenRecord, 0, len(feed.Holdings))
	for i, doc := range feed.Holdings {
		rec, err := doc.record()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// record maps the document onto a catalog record. The first count is the
// consortium-wide total, the second the local org unit.
func (h holdingsXML) record() (catalog.EvergreenRecord, error) {
	if len(h.Counts) == 0 {
		return catalog.EvergreenRecord{}, ErrMalformed
	}
	rec := catalog.EvergreenRecord{
		RecordID:        recordIDFromTag(h.ID),
		ConsortiumCount: h.Counts[0].Count,
	}
	if len(h.Counts) > 1 {
		rec.LocalCount = h.Counts[1].Count
	}
	for _, vol := range h.Volumes {
		for _, cp := range vol.Copies {
			rec.Holdings = append(rec.Holdings, catalog.Holding{
				Library: strings.TrimSpace(cp.CircLib.Shortname),
				Shelf:   strings.TrimSpace(cp.Location.Ident),
				Barcode: strings.TrimSpace(cp.Barcode),
				CopyID:  strings.TrimSpace(cp.CopyID),
				Status:  atoi(cp.Status.Ident),
				Deleted: truthy(cp.Deleted),
			})
		}
	}
	return rec, nil
}

// recordIDFromTag extracts the trailing record id from a value such as
// "tag:open-ils.org:U2@bre/123".
func recordIDFromTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if idx := strings.LastIndexAny(tag, "/:"); idx >= 0 {
		tag = tag[idx+1:]
	}
	return tag
}

func atoi(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return -1
	}
	return n
}

func truthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "t", "true", "1", "yes":
		return true
	default:
		return false
	}
}
