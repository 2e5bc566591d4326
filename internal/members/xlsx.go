package members

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// ImportXLSX upserts every row of the first worksheet of an Excel workbook.
// Columns follow the same rules as ImportCSV. User ids must be stored as
// text cells, since spreadsheet numbers cannot hold a full snowflake.
func (r *Roster) ImportXLSX(ctx context.Context, guildID models.Snowflake, src io.Reader) (int, error) {
	rows, err := firstSheetRows(src)
	if err != nil {
		return 0, err
	}

	patches, err := parseRoster(guildID, rows)
	if err != nil {
		return 0, err
	}
	return r.importPatches(ctx, guildID, patches)
}

func firstSheetRows(src io.Reader) (nextRow, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, &models.ValidationError{Field: "file", Reason: "not a readable xlsx workbook"}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &models.ValidationError{Field: "file", Reason: "file is empty"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	i := 0
	return func() ([]string, error) {
		for i < len(rows) {
			row := rows[i]
			i++
			if !blankRow(row) {
				return row, nil
			}
		}
		return nil, io.EOF
	}, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
