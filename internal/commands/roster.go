package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/audit"
	"github.com/parsascontentcorner/clanwarden/internal/models"
)

const (
	maxInactiveListed = 25
	exportStampLayout = "20060102_150405"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func (r *Router) roleLink(ctx context.Context, inv *Invocation) (Response, error) {
	roleID, err := requiredSnowflake(inv, "role")
	if err != nil {
		return Response{}, err
	}
	rank, _ := inv.String("clan_rank")
	rank = strings.TrimSpace(rank)

	if err := r.roster.LinkRole(ctx, inv.GuildID, roleID, rank); err != nil {
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionRoleLink, models.NullSnowflake{}, fmt.Sprintf("Linked role %s to rank %s", roleID, rank))
	return reply("✅ Linked %s to clan rank **%s**.", roleMention(roleID), rank), nil
}

// syncRanks grants every ranked roster member the roles mapped to their
// rank. Grants the platform refuses are skipped.
func (r *Router) syncRanks(ctx context.Context, inv *Invocation) (Response, error) {
	current, err := r.platform.GuildMemberRoles(ctx, inv.GuildID)
	if err != nil {
		return Response{}, err
	}
	grants, err := r.roster.PlanRankSync(ctx, inv.GuildID, current)
	if err != nil {
		return Response{}, err
	}

	updated := make(map[models.Snowflake]bool)
	for _, g := range grants {
		err := r.platform.AddRole(ctx, inv.GuildID, g.UserID, g.RoleID)
		if errors.Is(err, ErrForbidden) || errors.Is(err, ErrPlatformNotFound) {
			r.logger.Debug("rank role grant skipped",
				zap.String("guild_id", inv.GuildID.String()),
				zap.String("user_id", g.UserID.String()),
				zap.String("role_id", g.RoleID.String()),
				zap.Error(err),
			)
			continue
		}
		if err != nil {
			return Response{}, err
		}
		updated[g.UserID] = true
	}

	r.track(ctx, inv, audit.ActionSyncRanks, models.NullSnowflake{}, fmt.Sprintf("Synced %d members", len(updated)))
	return reply("✅ Rank sync complete! Updated %d member(s).", len(updated)), nil
}

func (r *Router) importMembers(ctx context.Context, inv *Invocation) (Response, error) {
	file, ok := inv.Attachment("file")
	if !ok {
		return Response{}, &models.ValidationError{Field: "file", Reason: "is required"}
	}

	importer := r.roster.ImportCSV
	switch strings.ToLower(path.Ext(file.Filename)) {
	case ".csv":
	case ".xlsx":
		importer = r.roster.ImportXLSX
	case ".xls":
		return reply("❌ Legacy .xls workbooks are not supported. Save the sheet as .xlsx or CSV and upload that instead."), nil
	default:
		return reply("❌ Invalid file format. Please upload a CSV or Excel (.xlsx) file."), nil
	}

	data, err := r.platform.FetchAttachment(ctx, file.URL)
	if err != nil {
		return Response{}, fmt.Errorf("failed to download attachment: %w", err)
	}

	count, err := importer(ctx, inv.GuildID, bytes.NewReader(data))
	if err != nil {
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionImportMembers, models.NullSnowflake{}, fmt.Sprintf("Imported %d members", count))
	return reply("✅ Successfully imported %d member(s)!", count), nil
}

func (r *Router) exportMembers(ctx context.Context, inv *Invocation) (Response, error) {
	var buf bytes.Buffer
	count, err := r.roster.ExportCSV(ctx, inv.GuildID, &buf)
	if err != nil {
		return Response{}, err
	}
	if count == 0 {
		return reply("❌ No members found in the database."), nil
	}

	name := fmt.Sprintf("members_%s_%s.csv", exportLabel(inv), r.now().UTC().Format(exportStampLayout))
	r.track(ctx, inv, audit.ActionExportMembers, models.NullSnowflake{}, fmt.Sprintf("Exported %d members", count))

	resp := reply("✅ Exported %d member(s).", count)
	resp.File = &File{Name: name, ContentType: "text/csv", Data: buf.Bytes()}
	return resp, nil
}

func exportLabel(inv *Invocation) string {
	label := strings.Trim(unsafeFileChars.ReplaceAllString(inv.GuildName, "_"), "_")
	if label == "" {
		return inv.GuildID.String()
	}
	return label
}

func (r *Router) activityThreshold(ctx context.Context, inv *Invocation) (Response, error) {
	days, err := requiredInt(inv, "days")
	if err != nil {
		return Response{}, err
	}

	if err := r.roster.SetThreshold(ctx, inv.GuildID, int(days)); err != nil {
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionThresholdChange, models.NullSnowflake{}, fmt.Sprintf("Set threshold to %d days", days))
	return reply("✅ Activity threshold set to **%d day(s)**.", days), nil
}

func (r *Router) forceActivityScan(ctx context.Context, inv *Invocation) (Response, error) {
	result, err := r.roster.ScanInactive(ctx, inv.GuildID)
	if err != nil {
		return Response{}, err
	}

	r.track(ctx, inv, audit.ActionActivityScan, models.NullSnowflake{}, fmt.Sprintf("Found %d inactive members", len(result.UserIDs)))
	if len(result.UserIDs) == 0 {
		return reply("✅ No inactive members found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ Found %d inactive member(s) (threshold: %d days):", len(result.UserIDs), result.ThresholdDays)
	for i, id := range result.UserIDs {
		if i == maxInactiveListed {
			fmt.Fprintf(&b, "\n...and %d more", len(result.UserIDs)-maxInactiveListed)
			break
		}
		b.WriteString("\n" + userMention(id))
	}
	return reply(b.String()), nil
}
