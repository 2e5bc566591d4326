package audit

// Action is the tag stored in audit_logs.action_type
type Action string

// Class decides whether the guild toggle can silence an action
type Class int

const (
	// Security actions are recorded regardless of audit_log_enabled
	Security Class = iota
	// Routine actions are recorded only while audit_log_enabled is set
	Routine
)

func (c Class) String() string {
	if c == Routine {
		return "routine"
	}
	return "security"
}

const (
	ActionSetup           Action = "setup"
	ActionConfigChange    Action = "config_change"
	ActionResetBot        Action = "reset_bot"
	ActionAuditLogToggle  Action = "audit_log_toggle"
	ActionPermissionSet   Action = "permission_set"
	ActionPermissionDrop  Action = "permission_removed"
	ActionBlacklistAdd    Action = "blacklist_add"
	ActionBlacklistRemove Action = "blacklist_remove"
	ActionBackupCreated   Action = "backup_created"
	ActionBackupRestored  Action = "backup_restored"
	ActionWarn            Action = "warn"
	ActionWarningRemoved  Action = "warning_removed"
	ActionMute            Action = "mute"
	ActionUnmute          Action = "unmute"
	ActionAutoUnmute      Action = "auto_unmute"
	ActionKick            Action = "kick"
	ActionBan             Action = "ban"
	ActionUnban           Action = "unban"
	ActionPurge           Action = "purge"
	ActionCleanBots       Action = "clean_bots"
	ActionRaidShield      Action = "raid_shield"
	ActionLockChannel     Action = "lock_channel"
	ActionUnlockChannel   Action = "unlock_channel"

	ActionClanTagChange          Action = "clan_tag_change"
	ActionClanRequirementsChange Action = "clan_requirements_change"
	ActionClanAnnouncement       Action = "clan_announcement"
	ActionAutoRolesToggle        Action = "auto_roles_toggle"
	ActionRoleLink               Action = "role_link"
	ActionSyncRanks              Action = "sync_ranks"
	ActionImportMembers          Action = "import_members"
	ActionExportMembers          Action = "export_members"
	ActionThresholdChange        Action = "activity_threshold_change"
	ActionActivityScan           Action = "activity_scan"
	ActionVerify                 Action = "verify"
	ActionSlowmode               Action = "slowmode"
	ActionEcho                   Action = "echo_command"
	ActionAutoRank               Action = "auto_rank"
)

var catalog = map[Action]Class{
	ActionSetup:           Security,
	ActionConfigChange:    Security,
	ActionResetBot:        Security,
	ActionAuditLogToggle:  Security,
	ActionPermissionSet:   Security,
	ActionPermissionDrop:  Security,
	ActionBlacklistAdd:    Security,
	ActionBlacklistRemove: Security,
	ActionBackupCreated:   Security,
	ActionBackupRestored:  Security,
	ActionWarn:            Security,
	ActionWarningRemoved:  Security,
	ActionMute:            Security,
	ActionUnmute:          Security,
	ActionAutoUnmute:      Security,
	ActionKick:            Security,
	ActionBan:             Security,
	ActionUnban:           Security,
	ActionPurge:           Security,
	ActionCleanBots:       Security,
	ActionRaidShield:      Security,
	ActionLockChannel:     Security,
	ActionUnlockChannel:   Security,

	ActionClanTagChange:          Routine,
	ActionClanRequirementsChange: Routine,
	ActionClanAnnouncement:       Routine,
	ActionAutoRolesToggle:        Routine,
	ActionRoleLink:               Routine,
	ActionSyncRanks:              Routine,
	ActionImportMembers:          Routine,
	ActionExportMembers:          Routine,
	ActionThresholdChange:        Routine,
	ActionActivityScan:           Routine,
	ActionVerify:                 Routine,
	ActionSlowmode:               Routine,
	ActionEcho:                   Routine,
	ActionAutoRank:               Routine,
}

// ClassOf returns the class of an action. Actions missing from the catalog
// are treated as Security so they can never be silenced by the toggle.
func ClassOf(a Action) Class {
	if c, ok := catalog[a]; ok {
		return c
	}
	return Security
}

// Actions returns every catalogued action
func Actions() []Action {
	out := make([]Action, 0, len(catalog))
	for a := range catalog {
		out = append(out, a)
	}
	return out
}
