package formatter

import (
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/tidalctl/internal/models"
	"github.com/desertthunder/tidalctl/internal/shared"
)

func sampleExport() *models.PlaylistExport {
	return &models.PlaylistExport{
		Playlist: models.Playlist{
			ID:          "pl-1",
			Name:        "Road Trip",
			Description: "Songs for driving",
			TrackCount:  2,
			Public:      true,
		},
		Tracks: []models.Track{
			{ID: "1001", Title: "First Song", Artist: "Artist A", Album: "Album A", Duration: 245, ISRC: "US1001"},
			{ID: "1002", Title: "Second Song", Artist: "Artist B", Duration: 187},
		},
	}
}

func TestFormatter(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleExport())
		if err != nil {
			t.Fatalf("failed to export CSV: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("output should be valid CSV: %v", err)
		}

		if len(records) != 3 {
			t.Fatalf("expected header plus 2 rows, got %d", len(records))
		}
		if records[0][0] != "ID" || records[0][5] != "ISRC" {
			t.Errorf("unexpected header: %v", records[0])
		}
		if records[1][1] != "First Song" || records[1][4] != "245" {
			t.Errorf("unexpected first row: %v", records[1])
		}
		if records[2][5] != "" {
			t.Errorf("missing ISRC should be empty, got %q", records[2][5])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleExport())
		if err != nil {
			t.Fatalf("failed to export markdown: %v", err)
		}
		output := string(data)

		if !strings.Contains(output, "# Road Trip") {
			t.Error("markdown should start with the playlist title")
		}
		if !strings.Contains(output, "**Description**: Songs for driving") {
			t.Error("markdown should include the description")
		}
		if !strings.Contains(output, "1. Artist A - First Song (Album A) [4:05]") {
			t.Errorf("unexpected track line in:\n%s", output)
		}
		if !strings.Contains(output, "2. Artist B - Second Song [3:07]") {
			t.Errorf("track without album should skip the album part in:\n%s", output)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleExport())
		if err != nil {
			t.Fatalf("failed to export text: %v", err)
		}
		output := string(data)

		if !strings.Contains(output, "Playlist: Road Trip") {
			t.Error("text export should name the playlist")
		}
		if !strings.Contains(output, "1. Artist A - First Song") {
			t.Errorf("unexpected track listing in:\n%s", output)
		}
	})

	t.Run("ExportDispatch", func(t *testing.T) {
		export := sampleExport()

		for _, format := range []string{"csv", "markdown", "md", "text", ""} {
			if _, err := Export(export, format); err != nil {
				t.Errorf("format %q should be supported: %v", format, err)
			}
		}

		if _, err := Export(export, "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for unknown format, got %v", err)
		}
	})

	t.Run("EmptyPlaylist", func(t *testing.T) {
		export := &models.PlaylistExport{Playlist: models.Playlist{Name: "Empty"}}

		data, err := ExportToCSV(export)
		if err != nil {
			t.Fatalf("empty playlist should still export: %v", err)
		}
		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil || len(records) != 1 {
			t.Errorf("expected only the header row, got %v (%v)", records, err)
		}
	})
}
