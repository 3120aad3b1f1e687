package leadowner

import (
	"fmt"

	"github.com/jordanlanch/leadsync/pkg/models"
)

// Mode selects the precedence rules used when reconciling owners
type Mode string

const (
	// ModeStrict applies the decision table only: a stored owner other
	// than Administrator is never replaced by an assignment.
	ModeStrict Mode = "strict"
	// ModeAssignmentAware is opt-in. It also lets an owner that was set by
	// the previous assignment follow a reassignment.
	ModeAssignmentAware Mode = "assignment-aware"
)

// ParseMode validates a configured mode. Empty means strict.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeStrict:
		return ModeStrict, nil
	case ModeAssignmentAware:
		return ModeAssignmentAware, nil
	}
	return "", fmt.Errorf("unknown owner policy %q", s)
}

// Decision names the branch of the policy that fired
type Decision string

const (
	DecisionManualOverride   Decision = "manual_override"
	DecisionAlreadyCorrect   Decision = "already_correct"
	DecisionAdoptAssignment  Decision = "adopt_assignment"
	DecisionFollowAssignment Decision = "follow_assignment"
	DecisionPreserve         Decision = "preserve"
)

// Input is what the policy sees for one save
type Input struct {
	// Doc is the owner on the in-memory lead being saved.
	Doc string
	// Stored is the persisted owner before this save. Ignored when IsNew.
	Stored string
	IsNew  bool
	// Target is the assigned user when it exists, else Administrator.
	Target string
	// PreviousAssigned is the first assignee of the persisted lead.
	PreviousAssigned string
}

func orAdministrator(owner string) string {
	if owner == "" {
		return models.AdministratorUser
	}
	return owner
}

// Decide returns the owner to save and the branch that produced it
func Decide(mode Mode, in Input) (string, Decision) {
	doc := orAdministrator(in.Doc)
	target := orAdministrator(in.Target)
	admin := models.AdministratorUser

	if in.IsNew {
		switch {
		case doc == target:
			return target, DecisionAlreadyCorrect
		case doc == admin:
			return target, DecisionAdoptAssignment
		default:
			return doc, DecisionManualOverride
		}
	}

	stored := orAdministrator(in.Stored)
	switch {
	case doc != stored && doc != admin:
		return doc, DecisionManualOverride
	case stored == target:
		return target, DecisionAlreadyCorrect
	case stored == admin:
		return target, DecisionAdoptAssignment
	case mode == ModeAssignmentAware && doc == stored && stored == in.PreviousAssigned:
		return target, DecisionFollowAssignment
	default:
		return doc, DecisionPreserve
	}
}
