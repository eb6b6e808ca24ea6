package invites

import (
	"sort"

	"discord-invite-tracker/internal/models"

	"go.uber.org/zap"
)

// StatsView is a copy of one inviter's numbers, safe to render without
// holding the engine lock.
type StatsView struct {
	UserID            string
	Username          string
	DisplayName       string
	SuccessfulInvites int
	ActiveInvites     map[string]int
	Recruits          []models.RecruitmentEntry
}

// Stats returns a snapshot of one inviter's record, or false when the user
// has never been tracked.
func (e *Engine) Stats(userID string) (*StatsView, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.ledger[userID]
	if !ok {
		return nil, false
	}

	active := make(map[string]int, len(rec.ActiveInvites))
	for code, uses := range rec.ActiveInvites {
		active[code] = uses
	}
	recruits := make([]models.RecruitmentEntry, len(rec.RecruitmentLedger))
	copy(recruits, rec.RecruitmentLedger)

	return &StatsView{
		UserID:            userID,
		Username:          rec.Username,
		DisplayName:       rec.DisplayName,
		SuccessfulInvites: rec.SuccessfulInvites,
		ActiveInvites:     active,
		Recruits:          recruits,
	}, true
}

// LeaderboardEntry is one row of the top-recruiters view.
type LeaderboardEntry struct {
	UserID            string
	Username          string
	DisplayName       string
	SuccessfulInvites int
	ActiveInvites     int
}

// Leaderboard returns up to limit inviters sorted by successful invites
// descending, ties broken by user ID ascending so the order is stable
// across runs. Inviters with no successful and no active invites are
// omitted. Display names are refreshed from live member lookups when the
// member is still around; the ledger is persisted once if any changed.
func (e *Engine) Leaderboard(guildID string, limit int) []LeaderboardEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := make([]LeaderboardEntry, 0, len(e.ledger))
	changed := false
	for userID, rec := range e.ledger {
		if rec.SuccessfulInvites == 0 && len(rec.ActiveInvites) == 0 {
			continue
		}
		if member, err := e.platform.Member(guildID, userID); err == nil && member != nil {
			if rec.DisplayName != member.DisplayName {
				rec.DisplayName = member.DisplayName
				changed = true
			}
		}
		entries = append(entries, LeaderboardEntry{
			UserID:            userID,
			Username:          rec.Username,
			DisplayName:       rec.DisplayName,
			SuccessfulInvites: rec.SuccessfulInvites,
			ActiveInvites:     len(rec.ActiveInvites),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SuccessfulInvites != entries[j].SuccessfulInvites {
			return entries[i].SuccessfulInvites > entries[j].SuccessfulInvites
		}
		return entries[i].UserID < entries[j].UserID
	})

	if changed {
		e.store.SaveLedger(e.ledger)
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Normalize rewrites every inviter record into the canonical field layout
// and persists. Purely presentational consistency; the recruit index is
// rebuilt alongside.
func (e *Engine) Normalize() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, rec := range e.ledger {
		rec.Canonicalize()
	}

	e.recruits = make(map[string]string, len(e.recruits))
	for inviterID, rec := range e.ledger {
		for _, entry := range rec.RecruitmentLedger {
			e.recruits[entry.UserID] = inviterID
		}
	}

	e.store.SaveLedger(e.ledger)
	e.log.Info("inviter records normalized", zap.Int("records", len(e.ledger)))
	return len(e.ledger)
}
