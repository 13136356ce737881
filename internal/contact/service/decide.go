package service

import (
	"time"

	"contactlink/internal/contact/models"
	dErrors "contactlink/pkg/domain-errors"
)

// mutationPlan is the merge decider's output: the mutations one identify
// request requires, computed against the pre-merge snapshot.
type mutationPlan struct {
	// survivor is the oldest primary across every touched cluster. It is the
	// link target for a new secondary and the winner of any merge.
	survivor *models.Contact
	// newSecondary is non-nil when the request's (email, phone) pair is not
	// yet represented by any cluster member.
	newSecondary *models.Contact
	// demote lists every other cluster's primary, oldest first.
	demote []*models.Contact
	now    time.Time
}

func (p *mutationPlan) isNoop() bool {
	return p.newSecondary == nil && len(p.demote) == 0
}

// planMutations makes the two merge-decider decisions in order: the
// new-secondary check against the exact identifier pair, then the merge check
// over the pre-merge primary grouping.
func planMutations(cluster []*models.Contact, req models.IdentifyRequest, now time.Time) (*mutationPlan, error) {
	var primaries []*models.Contact
	for _, c := range cluster {
		if c.IsPrimary() {
			primaries = append(primaries, c)
		}
	}
	survivor := models.Oldest(primaries)
	if survivor == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "matched cluster has no primary contact")
	}

	plan := &mutationPlan{survivor: survivor, now: now}

	if needsNewSecondary(cluster, req) {
		plan.newSecondary = models.NewSecondary(req.Email, req.PhoneNumber, survivor.ID, now)
	}

	// cluster is in (created_at, id) order, so losing primaries come out
	// oldest first and demotions replay in a stable order under retry.
	for _, p := range primaries {
		if p.ID != survivor.ID {
			plan.demote = append(plan.demote, p)
		}
	}
	return plan, nil
}

// needsNewSecondary reports whether the request's exact identifier pair is
// novel for the cluster. The pair is compared as a whole: a known email
// combined with an unseen (or absent) phone is still novel unless some member
// carries exactly that combination.
func needsNewSecondary(cluster []*models.Contact, req models.IdentifyRequest) bool {
	for _, c := range cluster {
		if fieldsEqual(c.Email, req.Email) && fieldsEqual(c.PhoneNumber, req.PhoneNumber) {
			return false
		}
	}
	return true
}

func fieldsEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
