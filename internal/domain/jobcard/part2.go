package jobcard

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/workflow"
)

// Renumber returns a copy of items with srNo re-derived as 1..N in list order.
// Running it on its own output is a no-op.
func Renumber(items []entity.Part2Item) []entity.Part2Item {
	out := make([]entity.Part2Item, len(items))
	for i, item := range items {
		item.SrNo = i + 1
		out[i] = item
	}
	return out
}

// NormalizeItem validates one line and applies the labour code rule
func NormalizeItem(item entity.Part2Item) (entity.Part2Item, error) {
	item.PartName = strings.TrimSpace(item.PartName)
	item.LabourCode = strings.TrimSpace(item.LabourCode)

	if item.PartName == "" {
		return item, workflow.NewViolation(RuleInvalidItem, "part name is required")
	}
	if !item.ItemType.IsValid() {
		return item, workflow.NewViolation(RuleInvalidItem, "item %q has unknown type %q", item.PartName, item.ItemType)
	}
	if item.Quantity <= 0 {
		return item, workflow.NewViolation(RuleInvalidItem, "item %q quantity must be positive", item.PartName)
	}
	if item.Amount.IsNegative() {
		return item, workflow.NewViolation(RuleInvalidItem, "item %q amount cannot be negative", item.PartName)
	}

	switch item.ItemType {
	case entity.ItemTypePart:
		item.LabourCode = entity.LabourCodeAutoSelect
	case entity.ItemTypeWorkItem:
		if item.LabourCode == "" || item.LabourCode == entity.LabourCodeAutoSelect {
			return item, workflow.NewViolation(RuleLabourCodeRequired, "work item %q needs a labour code", item.PartName)
		}
	}
	return item, nil
}

func normalizeItems(items []entity.Part2Item) ([]entity.Part2Item, error) {
	out := make([]entity.Part2Item, 0, len(items))
	for _, item := range items {
		n, err := NormalizeItem(item)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return Renumber(out), nil
}

// Patch is a partial job card update. Nil fields are left unchanged; Part2
// replaces the whole item list.
type Patch struct {
	Priority *entity.Priority      `json:"priority,omitempty"`
	Part1    *entity.JobCardPart1  `json:"part1,omitempty"`
	Part2    []entity.Part2Item    `json:"part2,omitempty"`
	Part2A   *entity.JobCardPart2A `json:"part2a,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p Patch) IsEmpty() bool {
	return p.Priority == nil && p.Part1 == nil && p.Part2 == nil && p.Part2A == nil
}

// ApplyPatch applies p to jc and returns the updated copy
func ApplyPatch(ctx context.Context, jc *entity.JobCard, actor entity.Actor, p Patch, at time.Time) (*entity.JobCard, error) {
	if err := canEdit(ctx, jc, actor); err != nil {
		return nil, err
	}

	next := jc.Clone()
	if p.Priority != nil {
		if !p.Priority.IsValid() {
			return nil, workflow.NewViolation(RuleInvalidPriority, "unknown priority %q", *p.Priority)
		}
		next.Priority = *p.Priority
	}
	if p.Part1 != nil {
		next.Part1 = *p.Part1
	}
	if p.Part2A != nil {
		part2a := *p.Part2A
		part2a.EvidenceFiles = append([]string(nil), p.Part2A.EvidenceFiles...)
		next.Part2A = &part2a
	}
	if p.Part2 != nil {
		items, err := normalizeItems(p.Part2)
		if err != nil {
			return nil, err
		}
		if err := checkWarrantyLock(jc, items); err != nil {
			return nil, err
		}
		next.Part2 = items
	}
	next.UpdatedAt = at
	return next, nil
}

// AddItem appends item and renumbers
func AddItem(ctx context.Context, jc *entity.JobCard, actor entity.Actor, item entity.Part2Item, at time.Time) (*entity.JobCard, error) {
	items := append(append([]entity.Part2Item(nil), jc.Part2...), item)
	return ApplyPatch(ctx, jc, actor, Patch{Part2: items}, at)
}

// RemoveItem removes the line with srNo and renumbers the rest
func RemoveItem(ctx context.Context, jc *entity.JobCard, actor entity.Actor, srNo int, at time.Time) (*entity.JobCard, error) {
	items := make([]entity.Part2Item, 0, len(jc.Part2))
	found := false
	for _, item := range jc.Part2 {
		if item.SrNo == srNo && !found {
			found = true
			continue
		}
		items = append(items, item)
	}
	if !found {
		return nil, workflow.NewViolation(RuleItemNotFound, "job card %s has no item %d", jc.JobCardNumber, srNo)
	}
	return ApplyPatch(ctx, jc, actor, Patch{Part2: items}, at)
}

func canEdit(ctx context.Context, jc *entity.JobCard, actor entity.Actor) error {
	return workflow.Check(ctx,
		workflow.RequireRole(actor.Role, entity.RoleServiceAdvisor, entity.RoleServiceEngineer),
		workflow.Require(!jc.Status.IsTerminal(), RuleClosed,
			"job card %s is %s and can no longer be edited", jc.JobCardNumber, jc.Status),
	)
}

// checkWarrantyLock rejects a change to the set of warranty-tagged lines while
// a review covering them is pending or approved.
func checkWarrantyLock(jc *entity.JobCard, items []entity.Part2Item) error {
	if jc.ManagerReviewStatus != entity.ReviewPending && jc.ManagerReviewStatus != entity.ReviewApproved {
		return nil
	}
	before := warrantySignature(jc.Part2)
	after := warrantySignature(items)
	if len(before) != len(after) {
		return workflow.NewViolation(RuleWarrantyTagLocked,
			"warranty items of job card %s are locked while the review is %s", jc.JobCardNumber, jc.ManagerReviewStatus)
	}
	for i := range before {
		if before[i] != after[i] {
			return workflow.NewViolation(RuleWarrantyTagLocked,
				"warranty items of job card %s are locked while the review is %s", jc.JobCardNumber, jc.ManagerReviewStatus)
		}
	}
	return nil
}

func warrantySignature(items []entity.Part2Item) []string {
	var sig []string
	for _, item := range items {
		if item.PartWarrantyTag {
			sig = append(sig, strings.ToLower(strings.TrimSpace(item.PartName))+"|"+strings.TrimSpace(item.PartCode))
		}
	}
	sort.Strings(sig)
	return sig
}
