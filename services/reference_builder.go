package services

import (
	"fmt"
	"strconv"
	"strings"

	"sustain_score_app_go/models"
)

// ReferenceComponents contains the parsed parts of a project reference
// Format: {project_number}_{stage prefix}_{sequence:03d}, e.g. P100_T_001
type ReferenceComponents struct {
	ProjectNumber string
	Stage         models.ProjectStage
	Sequence      int
}

// BuildReference formats a reference from its parts
func BuildReference(projectNumber string, stage models.ProjectStage, sequence int) string {
	return fmt.Sprintf("%s_%s_%03d", strings.TrimSpace(projectNumber), stage.Prefix(), sequence)
}

// CountStageRecords counts existing records with the same project number and stage
func CountStageRecords(existing []models.Project, projectNumber string, stage models.ProjectStage, excludeID string) int {
	number := strings.TrimSpace(projectNumber)
	count := 0
	for _, p := range existing {
		if p.ID == excludeID && excludeID != "" {
			continue
		}
		if p.ProjectNumber == number && p.ProjectStage == stage {
			count++
		}
	}
	return count
}

// GenerateReference computes the next reference for (projectNumber, stage)
// from the current record set. The sequence is 1 + the number of records
// already stored for the same project number and stage. After deletions that
// sequence can already be taken, in which case the next free one is used.
func GenerateReference(existing []models.Project, projectNumber string, stage models.ProjectStage, excludeID string) (string, error) {
	if strings.TrimSpace(projectNumber) == "" {
		return "", fmt.Errorf("project number is required")
	}
	if !stage.IsValid() {
		return "", fmt.Errorf("invalid project stage: %q", stage)
	}

	taken := make(map[string]bool, len(existing))
	for _, p := range existing {
		if p.ID != excludeID || excludeID == "" {
			taken[p.Reference] = true
		}
	}

	const maxAttempts = 1000
	seq := CountStageRecords(existing, projectNumber, stage, excludeID) + 1
	for i := 0; i < maxAttempts; i++ {
		ref := BuildReference(projectNumber, stage, seq+i)
		if !taken[ref] {
			return ref, nil
		}
	}
	return "", fmt.Errorf("failed to find a free reference after %d attempts", maxAttempts)
}

// ParseReference splits a reference into its components. Project numbers may
// themselves contain underscores, so the reference is split from the right.
func ParseReference(reference string) (*ReferenceComponents, error) {
	reference = strings.TrimSpace(reference)

	seqIdx := strings.LastIndex(reference, "_")
	if seqIdx <= 0 {
		return nil, fmt.Errorf("reference %q has no sequence", reference)
	}
	stageIdx := strings.LastIndex(reference[:seqIdx], "_")
	if stageIdx <= 0 {
		return nil, fmt.Errorf("reference %q has no stage", reference)
	}

	seqPart := reference[seqIdx+1:]
	if len(seqPart) < 3 {
		return nil, fmt.Errorf("reference sequence must be at least 3 digits, got %q", seqPart)
	}
	seq, err := strconv.Atoi(seqPart)
	if err != nil || seq < 1 {
		return nil, fmt.Errorf("invalid reference sequence %q", seqPart)
	}

	prefix := reference[stageIdx+1 : seqIdx]
	if len(prefix) != 1 {
		return nil, fmt.Errorf("invalid stage prefix %q", prefix)
	}
	stage, err := models.ParseProjectStage(prefix)
	if err != nil {
		return nil, err
	}

	return &ReferenceComponents{
		ProjectNumber: reference[:stageIdx],
		Stage:         stage,
		Sequence:      seq,
	}, nil
}
