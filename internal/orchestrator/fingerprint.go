package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/agentmem/agentmem/internal/types"
)

// cacheScopePrefix is the unhashed key prefix shared by every cached
// search result for one user, so a write affecting that user can
// invalidate every cached search via Cache.L1.InvalidatePrefix without
// needing to know which exact queries were cached (spec §4.9 "invalidate
// cache keys for affected scopes").
func cacheScopePrefix(userID string) string {
	if userID == "" {
		userID = "_"
	}
	return "search:" + userID + ":"
}

// searchFingerprint builds the cache key a search result is stored and
// looked up under: every axis that changes the result set must be part
// of the fingerprint, or a stale result would be served for a
// differently filtered query (spec §4.9 "consults cache by fingerprint").
func searchFingerprint(query string, filter types.MemoryFilter, page types.Page) string {
	h := sha256.New()
	fmt.Fprintf(h, "q=%s\x00a=%s\x00o=%s\x00s=%s\x00",
		query, filter.AgentID, filter.OrganizationID, filter.SessionID)
	if filter.MemoryType != nil {
		fmt.Fprintf(h, "mt=%s\x00", *filter.MemoryType)
	}
	if filter.Scope != nil {
		fmt.Fprintf(h, "sc=%s\x00", *filter.Scope)
	}
	if filter.MinImportance != nil {
		fmt.Fprintf(h, "mi=%v\x00", *filter.MinImportance)
	}
	if filter.MaxAgeDays != nil {
		fmt.Fprintf(h, "ma=%v\x00", *filter.MaxAgeDays)
	}
	if filter.MinAccessCount != nil {
		fmt.Fprintf(h, "mc=%v\x00", *filter.MinAccessCount)
	}
	fmt.Fprintf(h, "del=%v\x00lim=%d\x00off=%d", filter.IncludeDeleted, page.Limit, page.Offset)
	return cacheScopePrefix(filter.UserID) + hex.EncodeToString(h.Sum(nil))
}
