package planner

import (
	"sort"

	"github.com/edt-planner/edt-api/internal/models"
)

// SessionRequest is one series of sessions to place: a course bound to a
// class group (or subgroup), with its teacher preferences and seat demand.
// Each week the engine tries to place one occurrence of every request with
// Remaining > 0; explicit week quotas can raise that per-week goal.
type SessionRequest struct {
	Course       *models.Course
	ClassGroupID string
	// Subgroup labels a TP half-class series ("A"/"B"); nil otherwise.
	Subgroup *string
	// Attendees lists every class sharing the session. CM requests carry
	// the full set; every other kind attends alone.
	Attendees []string
	// PreferredTeacherID comes from the class link, tried after continuity.
	PreferredTeacherID *string
	// EligibleTeacherIDs is the course's teacher list in declaration order,
	// the final fallback and the pool for SAE co-teachers.
	EligibleTeacherIDs []string
	// NeedsSecondTeacher marks SAE requests, which occupy two teachers.
	NeedsSecondTeacher bool
	RequiredSeats      int
	// Remaining counts occurrences still to place in this run.
	Remaining int
}

// Key identifies the request's series for continuity and counting.
func (r *SessionRequest) Key() string {
	return seriesKey(r.Course.ID, r.ClassGroupID, r.Subgroup)
}

// RequestInput bundles the persisted rows requests are derived from.
type RequestInput struct {
	Courses      []models.Course
	ClassLinks   []models.CourseClassLink
	TeacherLinks []models.CourseTeacherLink
	ClassSizes   map[string]int
}

// BuildRequests expands courses into placement series following the course
// type: CM merges every linked class into a single joint request, TP links
// with two groups split into parallel A/B series, everything else yields one
// request per class link. Remaining is reduced by sessions already persisted
// for the series. The result is ordered by type priority, course priority
// then course name, with class link position as the final tie break.
func BuildRequests(in RequestInput, idx *Index) []*SessionRequest {
	linksByCourse := make(map[string][]models.CourseClassLink)
	for _, link := range in.ClassLinks {
		linksByCourse[link.CourseID] = append(linksByCourse[link.CourseID], link)
	}
	for courseID := range linksByCourse {
		links := linksByCourse[courseID]
		sort.Slice(links, func(i, j int) bool { return links[i].Position < links[j].Position })
	}

	teachersByCourse := make(map[string][]string)
	teacherLinks := make([]models.CourseTeacherLink, len(in.TeacherLinks))
	copy(teacherLinks, in.TeacherLinks)
	sort.Slice(teacherLinks, func(i, j int) bool {
		if teacherLinks[i].CourseID != teacherLinks[j].CourseID {
			return teacherLinks[i].CourseID < teacherLinks[j].CourseID
		}
		return teacherLinks[i].Position < teacherLinks[j].Position
	})
	for _, link := range teacherLinks {
		teachersByCourse[link.CourseID] = append(teachersByCourse[link.CourseID], link.TeacherID)
	}

	var requests []*SessionRequest
	for i := range in.Courses {
		course := &in.Courses[i]
		links := linksByCourse[course.ID]
		if len(links) == 0 {
			continue
		}
		eligible := teachersByCourse[course.ID]

		switch {
		case course.Type == models.CourseTypeCM:
			requests = append(requests, buildJointRequest(course, links, eligible, in.ClassSizes))
		default:
			for _, link := range links {
				requests = append(requests, buildLinkRequests(course, link, eligible, in.ClassSizes)...)
			}
		}
	}

	for _, request := range requests {
		placed := idx.PlacedCount(request.Course.ID, request.ClassGroupID, request.Subgroup)
		request.Remaining = request.Course.SessionsRequired - placed
		if request.Remaining < 0 {
			request.Remaining = 0
		}
	}

	sort.SliceStable(requests, func(i, j int) bool {
		a, b := requests[i], requests[j]
		if pa, pb := a.Course.Type.TypePriority(), b.Course.Type.TypePriority(); pa != pb {
			return pa < pb
		}
		if a.Course.Priority != b.Course.Priority {
			return a.Course.Priority < b.Course.Priority
		}
		if a.Course.Name != b.Course.Name {
			return a.Course.Name < b.Course.Name
		}
		return a.Key() < b.Key()
	})
	return requests
}

// buildJointRequest merges every class link of a CM course into one request.
// The first linked class owns the session row; the rest become attendance.
func buildJointRequest(course *models.Course, links []models.CourseClassLink, eligible []string, sizes map[string]int) *SessionRequest {
	attendees := make([]string, 0, len(links))
	seats := 0
	for _, link := range links {
		attendees = append(attendees, link.ClassGroupID)
		seats += sizes[link.ClassGroupID]
	}
	return &SessionRequest{
		Course:             course,
		ClassGroupID:       links[0].ClassGroupID,
		Attendees:          attendees,
		PreferredTeacherID: links[0].TeacherAID,
		EligibleTeacherIDs: eligible,
		RequiredSeats:      seats,
	}
}

// buildLinkRequests expands one class link: a TP link with two groups yields
// the parallel A and B series, anything else yields a single series. SAE
// requests need a second teacher free over the same slot.
func buildLinkRequests(course *models.Course, link models.CourseClassLink, eligible []string, sizes map[string]int) []*SessionRequest {
	size := sizes[link.ClassGroupID]

	if course.Type == models.CourseTypeTP && link.GroupCount == 2 {
		labelA := "A"
		if link.SubgroupALabel != nil && *link.SubgroupALabel != "" {
			labelA = *link.SubgroupALabel
		}
		labelB := "B"
		if link.SubgroupBLabel != nil && *link.SubgroupBLabel != "" {
			labelB = *link.SubgroupBLabel
		}
		half := (size + 1) / 2
		return []*SessionRequest{
			{
				Course:             course,
				ClassGroupID:       link.ClassGroupID,
				Subgroup:           &labelA,
				Attendees:          []string{link.ClassGroupID},
				PreferredTeacherID: link.TeacherAID,
				EligibleTeacherIDs: eligible,
				RequiredSeats:      half,
			},
			{
				Course:             course,
				ClassGroupID:       link.ClassGroupID,
				Subgroup:           &labelB,
				Attendees:          []string{link.ClassGroupID},
				PreferredTeacherID: link.TeacherBID,
				EligibleTeacherIDs: eligible,
				RequiredSeats:      half,
			},
		}
	}

	return []*SessionRequest{{
		Course:             course,
		ClassGroupID:       link.ClassGroupID,
		Attendees:          []string{link.ClassGroupID},
		PreferredTeacherID: link.TeacherAID,
		EligibleTeacherIDs: eligible,
		NeedsSecondTeacher: course.Type == models.CourseTypeSAE,
		RequiredSeats:      size,
	}}
}
