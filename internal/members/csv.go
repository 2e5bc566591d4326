package members

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// ExportColumns is the header written by ExportCSV
var ExportColumns = []string{"user_id", "username", "clan_rank", "hangar_power", "league", "last_active", "is_inactive", "joined_at"}

var requiredImportColumns = []string{"user_id", "username"}

// ImportCSV upserts every row of a roster sheet. The header must name
// user_id and username; clan_rank, hangar_power and league are optional and,
// when present, overwrite the stored value (an empty cell clears it).
// The whole file is validated before anything is written.
func (r *Roster) ImportCSV(ctx context.Context, guildID models.Snowflake, src io.Reader) (int, error) {
	reader := csv.NewReader(src)
	reader.TrimLeadingSpace = true

	patches, err := parseRoster(guildID, reader.Read)
	if err != nil {
		return 0, err
	}
	return r.importPatches(ctx, guildID, patches)
}

func (r *Roster) importPatches(ctx context.Context, guildID models.Snowflake, patches []models.MemberPatch) (int, error) {
	for i, p := range patches {
		if err := r.store.UpsertMember(ctx, p); err != nil {
			return i, fmt.Errorf("failed to import member %s: %w", p.UserID, err)
		}
	}

	r.logger.Info("imported members",
		zap.String("guild_id", guildID.String()),
		zap.Int("count", len(patches)),
	)
	return len(patches), nil
}

// nextRow yields one sheet row per call and io.EOF after the last
type nextRow func() ([]string, error)

func parseRoster(guildID models.Snowflake, next nextRow) ([]models.MemberPatch, error) {
	header, err := next()
	if errors.Is(err, io.EOF) {
		return nil, &models.ValidationError{Field: "file", Reason: "file is empty"}
	}
	if err != nil {
		return nil, &models.ValidationError{Field: "file", Reason: err.Error()}
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, col := range requiredImportColumns {
		if _, ok := index[col]; !ok {
			return nil, &models.ValidationError{
				Field:  "file",
				Reason: "missing required columns, file must contain: " + strings.Join(requiredImportColumns, ", "),
			}
		}
	}

	var patches []models.MemberPatch
	for line := 2; ; line++ {
		record, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &models.ValidationError{Field: "file", Reason: err.Error()}
		}

		cell := func(col string) (string, bool) {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return "", ok
			}
			return strings.TrimSpace(record[i]), true
		}

		rawID, _ := cell("user_id")
		userID, err := models.ParseSnowflake(rawID)
		if err != nil {
			return nil, &models.ValidationError{Field: "user_id", Reason: fmt.Sprintf("row %d: %q is not a user id", line, rawID)}
		}
		username, _ := cell("username")

		p := models.MemberPatch{GuildID: guildID, UserID: userID, Username: username}
		if v, ok := cell("clan_rank"); ok {
			p.ClanRank = &sql.NullString{String: v, Valid: v != ""}
		}
		if v, ok := cell("league"); ok {
			p.League = &sql.NullString{String: v, Valid: v != ""}
		}
		if v, ok := cell("hangar_power"); ok {
			power := sql.NullInt64{}
			if v != "" {
				n, err := parsePower(v)
				if err != nil {
					return nil, &models.ValidationError{Field: "hangar_power", Reason: fmt.Sprintf("row %d: %q is not a number", line, v)}
				}
				power = sql.NullInt64{Int64: n, Valid: true}
			}
			p.HangarPower = &power
		}
		patches = append(patches, p)
	}

	return patches, nil
}

// parsePower accepts integers and spreadsheet floats such as "1500.0"
func parsePower(v string) (int64, error) {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// ExportCSV writes the guild roster with the ExportColumns header and returns
// the number of members written. NULL columns are left empty.
func (r *Roster) ExportCSV(ctx context.Context, guildID models.Snowflake, dst io.Writer) (int, error) {
	members, err := r.store.GetAllMembers(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("failed to load roster: %w", err)
	}

	w := csv.NewWriter(dst)
	if err := w.Write(ExportColumns); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	for _, m := range members {
		record := []string{
			m.UserID.String(),
			m.Username,
			nullString(m.ClanRank),
			nullInt(m.HangarPower),
			nullString(m.League),
			m.LastActive.UTC().Format(time.RFC3339),
			strconv.FormatBool(m.IsInactive),
			m.JoinedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return 0, fmt.Errorf("failed to write member %s: %w", m.UserID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush export: %w", err)
	}
	return len(members), nil
}

func nullString(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

func nullInt(v sql.NullInt64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatInt(v.Int64, 10)
}
