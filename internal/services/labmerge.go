package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"seatwatch/internal/domain"
)

// LabSuffix is the feed's convention: a lab's course code is its parent's
// code plus this letter (CSE110 -> CSE110L).
const LabSuffix = "L"

// ParentLookup reads already-persisted parent sections.
type ParentLookup interface {
	ParentCandidates(ctx context.Context, courseCode string) ([]domain.Section, error)
}

// Orphan is a lab that could not be attached to any parent.
type Orphan struct {
	Lab domain.Section
	Err error
}

type MergeResult struct {
	// Sections holds every non-lab section of the batch plus any persisted
	// parent that picked up a lab this pass. It never contains a lab.
	Sections []domain.Section
	Orphans  []Orphan
}

type LabMerger struct {
	Catalog ParentLookup
}

func NewLabMerger(catalog ParentLookup) *LabMerger { return &LabMerger{Catalog: catalog} }

// ParentCode strips the lab suffix from a lab course code.
func ParentCode(labCode string) (string, bool) {
	code := strings.TrimSpace(labCode)
	if len(code) <= len(LabSuffix) || !strings.HasSuffix(strings.ToUpper(code), LabSuffix) {
		return "", false
	}
	return code[:len(code)-len(LabSuffix)], true
}

type mergeTarget struct {
	section   *domain.Section
	nameMatch bool // current lab was chosen by matching section name
}

// Merge folds every lab of the batch into its parent's schedule. Parents are
// looked up in the batch first. The persisted catalog joins the candidates
// whenever no batch section matches the lab by name, so the result depends
// neither on feed order nor on which parents the batch happens to carry.
func (m *LabMerger) Merge(ctx context.Context, batch []domain.Section) MergeResult {
	var res MergeResult

	// Later duplicates of a section id replace earlier ones.
	parents := make([]domain.Section, 0, len(batch))
	parentIdx := map[int64]int{}
	labsByID := map[int64]domain.Section{}
	for _, s := range batch {
		if s.IsLab() {
			labsByID[s.SectionID] = s
			continue
		}
		if i, ok := parentIdx[s.SectionID]; ok {
			parents[i] = s
			continue
		}
		parentIdx[s.SectionID] = len(parents)
		parents = append(parents, s)
	}

	byCode := map[string][]*domain.Section{}
	for i := range parents {
		code := parents[i].CourseCode
		byCode[code] = append(byCode[code], &parents[i])
	}
	for _, list := range byCode {
		sortByID(list)
	}

	labs := make([]domain.Section, 0, len(labsByID))
	for _, l := range labsByID {
		labs = append(labs, l)
	}
	sort.Slice(labs, func(i, j int) bool { return labs[i].SectionID < labs[j].SectionID })

	stored := map[string][]*domain.Section{}
	var extra []*domain.Section
	assigned := map[int64]*mergeTarget{}

	for _, lab := range labs {
		code, ok := ParentCode(lab.CourseCode)
		if !ok {
			res.Orphans = append(res.Orphans, Orphan{Lab: lab, Err: fmt.Errorf("%w: %q has no lab suffix", domain.ErrParentNotFound, lab.CourseCode)})
			continue
		}
		candidates := byCode[code]
		if !hasNameMatch(candidates, lab) {
			cached, seen := stored[code]
			if !seen {
				found, err := m.Catalog.ParentCandidates(ctx, code)
				if err != nil && len(candidates) == 0 {
					res.Orphans = append(res.Orphans, Orphan{Lab: lab, Err: fmt.Errorf("%w: lookup %s: %v", domain.ErrParentNotFound, code, err)})
					continue
				}
				for i := range found {
					// The batch copy of a section supersedes the stored one.
					if _, inBatch := parentIdx[found[i].SectionID]; inBatch || found[i].IsLab() {
						continue
					}
					p := found[i]
					cached = append(cached, &p)
				}
				if err == nil {
					stored[code] = cached
				}
			}
			if len(cached) > 0 {
				candidates = append(append([]*domain.Section(nil), candidates...), cached...)
				sortByID(candidates)
			}
		}
		if len(candidates) == 0 {
			res.Orphans = append(res.Orphans, Orphan{Lab: lab, Err: fmt.Errorf("%w: %s", domain.ErrParentNotFound, code)})
			continue
		}

		parent, nameMatch := pickParent(candidates, lab)
		if cur, ok := assigned[parent.SectionID]; ok {
			// Labs arrive in id order; a section-name match beats an
			// earlier fallback, nothing else displaces the first lab.
			if cur.nameMatch || !nameMatch {
				res.Orphans = append(res.Orphans, Orphan{Lab: lab, Err: fmt.Errorf("%w: %s already carries lab %d", domain.ErrParentNotFound, code, cur.section.Schedule.LabSection.LabSectionID)})
				continue
			}
			displaced := *parent.Schedule.LabSection
			res.Orphans = append(res.Orphans, Orphan{Lab: labFromEmbedded(displaced), Err: fmt.Errorf("%w: %s carries lab %d instead", domain.ErrParentNotFound, code, lab.SectionID)})
		} else if _, inBatch := parentIdx[parent.SectionID]; !inBatch {
			extra = append(extra, parent)
		}
		parent.Schedule.LabSection = embedLab(lab)
		assigned[parent.SectionID] = &mergeTarget{section: parent, nameMatch: nameMatch}
	}

	res.Sections = parents
	sortByID(extra)
	for _, p := range extra {
		res.Sections = append(res.Sections, *p)
	}
	return res
}

func hasNameMatch(candidates []*domain.Section, lab domain.Section) bool {
	for _, c := range candidates {
		if lab.SectionName != "" && c.SectionName == lab.SectionName {
			return true
		}
	}
	return false
}

// pickParent prefers the section with the lab's own section name, then the
// lowest section id.
func pickParent(candidates []*domain.Section, lab domain.Section) (*domain.Section, bool) {
	for _, c := range candidates {
		if lab.SectionName != "" && c.SectionName == lab.SectionName {
			return c, true
		}
	}
	return candidates[0], false
}

func embedLab(lab domain.Section) *domain.LabSection {
	var meetings []domain.ClassSchedule
	if len(lab.Schedule.ClassSchedules) > 0 {
		meetings = append(meetings, lab.Schedule.ClassSchedules...)
	}
	return &domain.LabSection{
		LabSectionID:  lab.SectionID,
		LabCourseCode: lab.CourseCode,
		LabFaculties:  lab.Faculties,
		LabName:       lab.SectionName,
		LabRoomName:   lab.RoomName,
		LabSchedules:  domain.LabSchedules{ClassSchedules: meetings},
	}
}

func labFromEmbedded(l domain.LabSection) domain.Section {
	return domain.Section{
		SectionID:   l.LabSectionID,
		CourseCode:  l.LabCourseCode,
		SectionName: l.LabName,
		SectionType: domain.SectionLab,
	}
}

func sortByID(list []*domain.Section) {
	sort.Slice(list, func(i, j int) bool { return list[i].SectionID < list[j].SectionID })
}
