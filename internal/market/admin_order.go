package market

import "time"

// AdminOrder is an operator-created, ownerless order. Any eligible player may
// deliver into it, and repeatable ones reopen after a cooldown.
type AdminOrder struct {
	Base

	CategoryID       string
	CustomName       string
	CooldownDuration time.Duration
	Repeatable       bool
	CooldownEndsAt   *time.Time
	LastCompletedAt  *time.Time
}

// DisplayName falls back to the item kind when no custom name is set.
func (a *AdminOrder) DisplayName() string {
	if a.CustomName != "" {
		return a.CustomName
	}
	return a.Item.Kind
}

// InCooldown reports whether the order is waiting out its cooldown.
func (a *AdminOrder) InCooldown(now time.Time) bool {
	return a.CooldownEndsAt != nil && now.Before(*a.CooldownEndsAt)
}

// RemainingCooldown returns how long until the cooldown ends, or zero.
func (a *AdminOrder) RemainingCooldown(now time.Time) time.Duration {
	if !a.InCooldown(now) {
		return 0
	}
	return a.CooldownEndsAt.Sub(now)
}

// StartCooldown records completion time and moves the order into COOLDOWN.
func (a *AdminOrder) StartCooldown(now time.Time) {
	ends := now.Add(a.CooldownDuration)
	a.LastCompletedAt = &now
	a.CooldownEndsAt = &ends
	a.Status = StatusCooldown
}

// Complete handles order completion or expiration: repeatable orders with a
// cooldown configured go into COOLDOWN, everything else is terminally COMPLETED.
func (a *AdminOrder) Complete(now time.Time) {
	if a.Repeatable && a.CooldownDuration > 0 {
		a.StartCooldown(now)
		return
	}
	a.Status = StatusCompleted
}

// ShouldResume reports whether the cooldown has elapsed and the order is due
// to reopen. Orders not in COOLDOWN never resume.
func (a *AdminOrder) ShouldResume(now time.Time) bool {
	return a.Repeatable && a.Status == StatusCooldown && !a.InCooldown(now)
}

// ResumeAfterCooldown reopens the order with a clean slate. Callers must hold
// the order lock so reopening cannot race an in-flight delivery.
func (a *AdminOrder) ResumeAfterCooldown() {
	if !a.Repeatable {
		a.Status = StatusCompleted
		return
	}
	a.Delivered = 0
	a.Collected = 0
	a.CooldownEndsAt = nil
	a.Status = StatusActive
}

// CanBeFulfilled reports whether a player may deliver into this order.
func (a *AdminOrder) CanBeFulfilled(now time.Time) bool {
	if a.InCooldown(now) || a.IsExpired(now) {
		return false
	}
	return a.Status == StatusActive
}
