package access

import (
	"fmt"
	"strings"

	"access-platform/internal/facility"
)

// Pre-condition checks. All are pure functions over already-fetched entities;
// fetching happens inside the same transaction as the subsequent mutation so
// an entity cannot be deactivated between validation and commit.

func validateCheckInRequest(req CheckInRequest) error {
	if strings.TrimSpace(req.Motive) == "" {
		return fmt.Errorf("%w: motive is required", ErrValidation)
	}
	if err := validateCompanionFields(req.CompanionName, req.CompanionLocation); err != nil {
		return err
	}
	if err := validateGroupFields(req.IsGroup, req.GroupSize); err != nil {
		return err
	}
	if req.Identification != nil {
		if err := validateIdentificationPayload(*req.Identification); err != nil {
			return err
		}
	}
	return nil
}

func validateCreator(u facility.StaffUser) error {
	if !u.Active {
		return fmt.Errorf("%w: creator %s is inactive", ErrValidation, u.ID)
	}
	return nil
}

func validateShiftActive(s facility.Shift) error {
	if !s.Active {
		return fmt.Errorf("%w: shift %s is inactive", ErrValidation, s.ID)
	}
	return nil
}

func validateCheckpointActive(cp facility.Checkpoint) error {
	if !cp.Active {
		return fmt.Errorf("%w: checkpoint %s is inactive", ErrValidation, cp.ID)
	}
	return nil
}

// validateCompanionFields: an escort is identified by name and organizational
// location; either both are present or neither is.
func validateCompanionFields(name, location string) error {
	hasName := strings.TrimSpace(name) != ""
	hasLocation := strings.TrimSpace(location) != ""
	if hasName != hasLocation {
		return fmt.Errorf("%w: companion name and location are required together", ErrValidation)
	}
	return nil
}

func validateGroupFields(isGroup bool, size int) error {
	if isGroup && size < 1 {
		return fmt.Errorf("%w: group size must be at least 1", ErrValidation)
	}
	if !isGroup && size != 0 {
		return fmt.Errorf("%w: group size set without group flag", ErrValidation)
	}
	return nil
}

func validateIdentificationPayload(p IdentificationPayload) error {
	if strings.TrimSpace(p.Type) == "" || strings.TrimSpace(p.Number) == "" {
		return fmt.Errorf("%w: identification type and number are required", ErrValidation)
	}
	return nil
}
