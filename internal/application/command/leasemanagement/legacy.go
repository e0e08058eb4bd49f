package leasemanagement

// Legacy documents look like {"username": ..., "accessedAt": ...} with an
// optional "sessionMinutes", the expiry being accessedAt plus the session.
// A document carrying any canonical field is taken as canonical and its
// legacy fields are ignored.
func migrateLegacy(raw map[string]any) map[string]any {
	if _, ok := raw["holder"]; ok {
		return raw
	}
	if _, ok := raw["endedAt"]; ok {
		return raw
	}

	username, hasUsername := raw["username"]
	accessedAt, hasAccessedAt := raw["accessedAt"]
	if !hasUsername && !hasAccessedAt {
		return raw
	}

	migrated := make(map[string]any, 2)
	if hasUsername {
		migrated["holder"] = username
	}

	if hasAccessedAt {
		started := parseInstant(accessedAt)
		if !started.Equal(Epoch) {
			state := LeaseState{}
			state.AccessFor(raw["sessionMinutes"], started)
			migrated["endedAt"] = state.Serialize().EndedAt
		}
	}

	return migrated
}
