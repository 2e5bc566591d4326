package members

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// workbook builds an xlsx file whose first sheet holds rows, starting at A1.
// A nil row is left blank.
func workbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		if row == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportXLSX(t *testing.T) {
	r, store := newTestRoster()
	file := workbook(t,
		[]interface{}{"user_id", "username", "clan_rank", "hangar_power", "league"},
		[]interface{}{"10", "alice", "R4", 1500, "Gold"},
		nil,
		[]interface{}{"11", "bob", "", 2000.0},
	)

	n, err := r.ImportXLSX(context.Background(), guild, file)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	a := store.members[alice]
	assert.Equal(t, "alice", a.Username)
	assert.Equal(t, sql.NullString{String: "R4", Valid: true}, a.ClanRank)
	assert.Equal(t, sql.NullInt64{Int64: 1500, Valid: true}, a.HangarPower)
	assert.Equal(t, sql.NullString{String: "Gold", Valid: true}, a.League)

	b := store.members[bob]
	assert.Equal(t, "bob", b.Username)
	assert.False(t, b.ClanRank.Valid)
	assert.Equal(t, int64(2000), b.HangarPower.Int64)
	assert.False(t, b.League.Valid, "cells past the end of a row are empty")
}

func TestImportXLSX_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		file   func(t *testing.T) *bytes.Buffer
		field  string
		reason string
	}{
		{"not a workbook", func(t *testing.T) *bytes.Buffer {
			return bytes.NewBufferString("user_id,username\n10,alice\n")
		}, "file", "xlsx"},
		{"empty sheet", func(t *testing.T) *bytes.Buffer {
			return workbook(t)
		}, "file", "empty"},
		{"missing username", func(t *testing.T) *bytes.Buffer {
			return workbook(t, []interface{}{"user_id", "clan_rank"}, []interface{}{"10", "R1"})
		}, "file", "username"},
		{"bad user id", func(t *testing.T) *bytes.Buffer {
			return workbook(t, []interface{}{"user_id", "username"}, []interface{}{"abc", "alice"})
		}, "user_id", "row 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store := newTestRoster()

			n, err := r.ImportXLSX(context.Background(), guild, tt.file(t))
			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.True(t, strings.Contains(verr.Reason, tt.reason), verr.Reason)
			assert.Zero(t, n)
			assert.Zero(t, store.upserts)
		})
	}
}

func TestImportXLSX_MatchesCSV(t *testing.T) {
	fromSheet, sheetStore := newTestRoster()
	fromCSV, csvStore := newTestRoster()

	_, err := fromSheet.ImportXLSX(context.Background(), guild, workbook(t,
		[]interface{}{"username", "user_id", "league"},
		[]interface{}{"alice", "10", "Silver"},
	))
	require.NoError(t, err)
	_, err = fromCSV.ImportCSV(context.Background(), guild, strings.NewReader("username,user_id,league\nalice,10,Silver\n"))
	require.NoError(t, err)

	assert.Equal(t, csvStore.members[alice].Username, sheetStore.members[alice].Username)
	assert.Equal(t, csvStore.members[alice].League, sheetStore.members[alice].League)
	assert.Equal(t, csvStore.members[alice].ClanRank, sheetStore.members[alice].ClanRank)
}
