// Package invites implements the invite reconciliation engine: it keeps the
// persisted inviter ledger and invite registry consistent with the live
// invite listing reported by the platform, attributes member joins to
// inviters by use-count delta, and fires recruitment milestones.
package invites

import (
	"errors"
	"fmt"
	"sync"

	"discord-invite-tracker/internal/metrics"
	"discord-invite-tracker/internal/models"
	"discord-invite-tracker/internal/store"

	"go.uber.org/zap"
)

// Milestone thresholds that trigger an owner notification.
var defaultMilestones = []int{5, 10, 15, 20, 25, 30, 50}

// Engine owns the durable tables and the volatile use cache. discordgo
// dispatches handlers on multiple goroutines, so every operation
// serializes behind mu; within one operation the tables and cache mutate
// as a unit.
type Engine struct {
	mu       sync.Mutex
	store    *store.Store
	platform Platform
	log      *zap.Logger

	ledger     models.Ledger
	registry   models.Registry
	cache      *UseCache
	recruits   map[string]string // recruit user ID -> inviter ID, system-wide
	milestones []int
}

func New(st *store.Store, platform Platform, logger *zap.Logger) *Engine {
	e := &Engine{
		store:      st,
		platform:   platform,
		log:        logger,
		ledger:     st.LoadLedger(),
		registry:   st.LoadRegistry(),
		cache:      NewUseCache(),
		recruits:   make(map[string]string),
		milestones: defaultMilestones,
	}
	for inviterID, rec := range e.ledger {
		for _, entry := range rec.RecruitmentLedger {
			if prev, dup := e.recruits[entry.UserID]; dup && prev != inviterID {
				e.log.Warn("recruit appears in multiple ledgers",
					zap.String("user_id", entry.UserID),
					zap.String("inviter_id", inviterID),
					zap.String("other_inviter_id", prev))
			}
			e.recruits[entry.UserID] = inviterID
		}
	}
	return e
}

// SetMilestones overrides the default thresholds. Must be called before
// the engine starts receiving events.
func (e *Engine) SetMilestones(thresholds []int) {
	if len(thresholds) > 0 {
		e.milestones = thresholds
	}
}

// Close persists both tables one final time.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.SaveLedger(e.ledger)
	e.store.SaveRegistry(e.registry)
}

// Initialize reconciles one guild at startup: prune ledger entries for
// invites that vanished while offline, rebuild the use cache, and adopt
// remote invites the registry has never seen. Permission failures abort
// the guild and are non-fatal.
func (e *Engine) Initialize(guildID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	listing, err := e.platform.GuildInvites(guildID)
	if err != nil {
		e.logListingFailure(guildID, err)
		return
	}
	e.log.Info("initializing invite tracking",
		zap.String("guild_id", guildID), zap.Int("invites", len(listing)))

	e.validate(guildID, listing)
	e.cache.Rebuild(guildID, listing)
	e.adopt(guildID, listing)

	e.store.SaveLedger(e.ledger)
	e.store.SaveRegistry(e.registry)
}

// validate drops every active_invites entry whose code is absent from the
// live listing, then persists the ledger. Callers hold mu.
func (e *Engine) validate(guildID string, listing []RemoteInvite) {
	live := make(map[string]struct{}, len(listing))
	for _, inv := range listing {
		live[inv.Code] = struct{}{}
	}

	for inviterID, rec := range e.ledger {
		for code := range rec.ActiveInvites {
			if _, ok := live[code]; !ok {
				delete(rec.ActiveInvites, code)
				e.log.Info("removed inactive invite",
					zap.String("code", code),
					zap.String("inviter_id", inviterID),
					zap.String("guild_id", guildID))
			}
		}
	}

	e.store.SaveLedger(e.ledger)
}

// adopt inserts registry snapshots for remote invites seen for the first
// time and makes sure each inviter has a ledger record carrying the
// invite's current use count. Best-effort per invite.
func (e *Engine) adopt(guildID string, listing []RemoteInvite) {
	for _, inv := range listing {
		if inv.Code == "" {
			continue
		}
		if inv.InviterID == "" {
			// Anonymous invites are not attributable.
			continue
		}

		if e.findInvite(inv.Code) == nil {
			e.registry = append(e.registry, snapshot(inv))
			e.log.Info("adopted existing invite",
				zap.String("code", inv.Code), zap.String("guild_id", guildID))
		}

		rec := e.ensureInviter(inv.InviterID, inv.InviterUsername, inv.InviterDisplayName)
		rec.ActiveInvites[inv.Code] = inv.Uses
	}
}

// HandleInviteCreate records a newly created invite. Replaying the same
// event is a no-op for both tables.
func (e *Engine) HandleInviteCreate(guildID string, inv RemoteInvite) {
	e.mu.Lock()
	defer e.mu.Unlock()
	metrics.EventsHandled.WithLabelValues("invite_create").Inc()

	if inv.InviterID == "" {
		e.log.Info("invite has no inviter, skipping",
			zap.String("code", inv.Code), zap.String("guild_id", guildID))
		return
	}

	rec := e.ensureInviter(inv.InviterID, inv.InviterUsername, inv.InviterDisplayName)
	if _, ok := rec.ActiveInvites[inv.Code]; !ok {
		rec.ActiveInvites[inv.Code] = 0
	}

	if e.findInvite(inv.Code) == nil {
		e.registry = append(e.registry, snapshot(inv))
	}
	e.cache.Commit(guildID, inv.Code, inv.Uses)

	e.log.Info("invite created",
		zap.String("code", inv.Code), zap.String("inviter_id", inv.InviterID))

	e.store.SaveLedger(e.ledger)
	e.store.SaveRegistry(e.registry)
}

// HandleInviteDelete removes a deleted invite from the ledger, the use
// cache, and finally the registry. The inviter is resolved through the
// registry first: the deletion event itself carries no inviter, so the
// registry entry must outlive the lookup.
func (e *Engine) HandleInviteDelete(guildID, code string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	metrics.EventsHandled.WithLabelValues("invite_delete").Inc()

	reg := e.findInvite(code)
	if reg == nil {
		e.log.Info("deleted invite unknown to registry",
			zap.String("code", code), zap.String("guild_id", guildID))
		return
	}

	if rec, ok := e.ledger[reg.InviterID]; ok {
		if _, present := rec.ActiveInvites[code]; present {
			delete(rec.ActiveInvites, code)
			e.log.Info("removed active invite",
				zap.String("code", code), zap.String("inviter_id", reg.InviterID))
			e.store.SaveLedger(e.ledger)
		}
	}

	e.cache.Forget(guildID, code)

	if e.removeInvite(code) {
		e.store.SaveRegistry(e.registry)
	}
}

// HandleMemberJoin attributes a join to the invite whose use count moved
// since the last observation. Exactly one invite is attributed per join;
// a join with no detectable delta is silently untracked.
func (e *Engine) HandleMemberJoin(guildID string, member MemberInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	metrics.EventsHandled.WithLabelValues("member_join").Inc()

	listing, err := e.platform.GuildInvites(guildID)
	if err != nil {
		e.logListingFailure(guildID, err)
		return
	}
	e.validate(guildID, listing)

	for _, inv := range listing {
		if e.cache.Observe(guildID, inv.Code, inv.Uses) <= 0 {
			continue
		}

		reg := e.findInvite(inv.Code)
		if reg == nil {
			// A use on an invite we never tracked; advance the cache so the
			// same use is not reconsidered on the next join.
			e.cache.Commit(guildID, inv.Code, inv.Uses)
			continue
		}

		inviter, err := e.platform.Member(guildID, reg.InviterID)
		if err != nil || inviter == nil {
			if err != nil {
				e.log.Warn("inviter lookup failed",
					zap.String("inviter_id", reg.InviterID), zap.Error(err))
			}
			e.cache.Commit(guildID, inv.Code, inv.Uses)
			continue
		}

		e.attribute(guildID, inviter, member, inv, reg)
		return
	}

	metrics.JoinsUntracked.Inc()
	e.log.Info("join not attributable to any invite",
		zap.String("user_id", member.ID), zap.String("guild_id", guildID))
}

// attribute credits one join to one inviter and persists both tables.
// Callers hold mu.
func (e *Engine) attribute(guildID string, inviter *MemberInfo, member MemberInfo, inv RemoteInvite, reg *models.InviteRecord) {
	rec := e.ensureInviter(inviter.ID, inviter.Username, inviter.DisplayName)
	rec.ActiveInvites[inv.Code] = inv.Uses

	if prevInviter, dup := e.recruits[member.ID]; dup {
		// Duplicate delivery or a rejoin: the member is already credited.
		e.log.Info("member already recruited, skipping credit",
			zap.String("user_id", member.ID),
			zap.String("credited_inviter_id", prevInviter))
	} else {
		prev := rec.SuccessfulInvites
		rec.SuccessfulInvites++
		rec.RecruitmentLedger = append(rec.RecruitmentLedger, models.RecruitmentEntry{
			UserID:         member.ID,
			Username:       member.Username,
			DisplayName:    member.DisplayName,
			InitiationDate: models.Timestamp(),
			InviteCode:     inv.Code,
		})
		e.recruits[member.ID] = inviter.ID
		metrics.JoinsAttributed.Inc()

		e.log.Info("join attributed",
			zap.String("user_id", member.ID),
			zap.String("inviter_id", inviter.ID),
			zap.String("code", inv.Code),
			zap.Int("successful_invites", rec.SuccessfulInvites))

		e.checkMilestone(guildID, rec, prev, member.DisplayName)
	}

	reg.Uses = inv.Uses
	e.cache.Commit(guildID, inv.Code, inv.Uses)

	e.store.SaveLedger(e.ledger)
	e.store.SaveRegistry(e.registry)
}

// checkMilestone notifies the guild owner when the count crosses a
// threshold. Delivery failures are logged, never retried.
func (e *Engine) checkMilestone(guildID string, rec *models.InviterRecord, prev int, recruitName string) {
	for _, threshold := range e.milestones {
		if prev < threshold && rec.SuccessfulInvites >= threshold {
			text := fmt.Sprintf("🎉 **%s** reached **%d** successful invites! Newest recruit: **%s**.",
				rec.DisplayName, rec.SuccessfulInvites, recruitName)
			if err := e.platform.NotifyOwner(guildID, text); err != nil {
				metrics.NotificationFailures.Inc()
				e.log.Warn("milestone notification failed",
					zap.String("guild_id", guildID), zap.Error(err))
			} else {
				metrics.MilestonesFired.Inc()
				e.log.Info("milestone notification sent",
					zap.String("inviter", rec.DisplayName), zap.Int("threshold", threshold))
			}
			return
		}
	}
}

// HandleMemberUpdate propagates a display name change into the member's
// own record and into every recruitment entry that references them, then
// persists once.
func (e *Engine) HandleMemberUpdate(member MemberInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	metrics.EventsHandled.WithLabelValues("member_update").Inc()

	changed := false
	if rec, ok := e.ledger[member.ID]; ok && rec.DisplayName != member.DisplayName {
		e.log.Info("display name changed",
			zap.String("user_id", member.ID),
			zap.String("old", rec.DisplayName), zap.String("new", member.DisplayName))
		rec.DisplayName = member.DisplayName
		changed = true
	}

	for _, rec := range e.ledger {
		for i := range rec.RecruitmentLedger {
			entry := &rec.RecruitmentLedger[i]
			if entry.UserID == member.ID && entry.DisplayName != member.DisplayName {
				entry.DisplayName = member.DisplayName
				changed = true
			}
		}
	}

	if changed {
		e.store.SaveLedger(e.ledger)
	}
}

// RefreshDisplayName pulls one user's current display name from the
// platform and stores it. Returns true if the stored value changed.
func (e *Engine) RefreshDisplayName(guildID, userID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.ledger[userID]
	if !ok {
		return false
	}
	member, err := e.platform.Member(guildID, userID)
	if err != nil || member == nil {
		return false
	}
	if rec.DisplayName == member.DisplayName {
		return false
	}
	rec.DisplayName = member.DisplayName
	e.store.SaveLedger(e.ledger)
	return true
}

// EnsureDisplayNames backfills display names on every record that lacks
// one, falling back to the stored username when the member is gone.
// Persists once if anything changed; returns whether it did.
func (e *Engine) EnsureDisplayNames(guildID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	updated := false
	for userID, rec := range e.ledger {
		if rec.DisplayName != "" {
			continue
		}
		member, err := e.platform.Member(guildID, userID)
		if err == nil && member != nil {
			rec.DisplayName = member.DisplayName
		} else {
			rec.DisplayName = rec.Username
			if rec.DisplayName == "" {
				rec.DisplayName = "Unknown"
			}
		}
		e.log.Info("backfilled display name",
			zap.String("user_id", userID), zap.String("display_name", rec.DisplayName))
		updated = true
	}

	if updated {
		e.store.SaveLedger(e.ledger)
	}
	return updated
}

func (e *Engine) logListingFailure(guildID string, err error) {
	if errors.Is(err, ErrPermission) {
		e.log.Warn("no permission to view invites", zap.String("guild_id", guildID))
		return
	}
	e.log.Error("failed to list invites", zap.String("guild_id", guildID), zap.Error(err))
}

// ensureInviter returns the inviter's record, creating a zeroed one on
// first sight and refreshing the display name on every call.
func (e *Engine) ensureInviter(userID, username, displayName string) *models.InviterRecord {
	rec, ok := e.ledger[userID]
	if !ok {
		rec = models.NewInviterRecord(username, displayName)
		e.ledger[userID] = rec
		e.log.Info("created inviter record", zap.String("user_id", userID))
		return rec
	}
	if displayName != "" {
		rec.DisplayName = displayName
	}
	if rec.Username == "" {
		rec.Username = username
	}
	return rec
}

func (e *Engine) findInvite(code string) *models.InviteRecord {
	for _, reg := range e.registry {
		if reg.Code == code {
			return reg
		}
	}
	return nil
}

func (e *Engine) removeInvite(code string) bool {
	for i, reg := range e.registry {
		if reg.Code == code {
			e.registry = append(e.registry[:i], e.registry[i+1:]...)
			return true
		}
	}
	return false
}

func snapshot(inv RemoteInvite) *models.InviteRecord {
	created := inv.CreatedAt
	if created == "" {
		created = models.Timestamp()
	}
	return &models.InviteRecord{
		Code:               inv.Code,
		InviterID:          inv.InviterID,
		InviterDisplayName: inv.InviterDisplayName,
		ChannelID:          inv.ChannelID,
		CreatedAt:          created,
		MaxUses:            inv.MaxUses,
		Temporary:          inv.Temporary,
		Uses:               inv.Uses,
	}
}
