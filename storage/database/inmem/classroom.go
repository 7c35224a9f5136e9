package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/classroom"
)

type classRepository struct {
	db *DB
}

var _ classroom.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) classroom.Repository {
	return &classRepository{db: db}
}

// withTeacher joins the teacher of cls.
func (repo *classRepository) withTeacher(cls classroom.Class) classroom.Class {
	cls.Teacher = nil
	if acc, ok := repo.db.accounts[cls.TeacherID]; ok && cls.TeacherID != "" {
		cls.Teacher = &classroom.TeacherSummary{ID: acc.ID, Username: acc.Username}
	}
	return cls
}

func (repo *classRepository) CreateClass(_ context.Context, cls classroom.Class, _ ...core.DBExecutor) (classroom.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cls.ID = newID()
	cls.Students = nil
	repo.db.classes[cls.ID] = cls
	return repo.withTeacher(cls), nil
}

func (repo *classRepository) GetClass(_ context.Context, id string, _ ...core.DBExecutor) (classroom.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cls, ok := repo.db.classes[id]
	if !ok {
		return classroom.Class{}, classroom.ErrNotFound
	}
	return repo.withTeacher(cls), nil
}

func (repo *classRepository) QueryClasses(_ context.Context, filter classroom.ClassFilter, _ ...core.DBExecutor) ([]classroom.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]classroom.Class, 0)
	for _, cls := range repo.db.classes {
		if filter.TeacherID != "" && cls.TeacherID != filter.TeacherID {
			continue
		}
		res = append(res, repo.withTeacher(cls))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (repo *classRepository) TeacherClassIDs(_ context.Context, teacherID string, _ ...core.DBExecutor) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := make([]string, 0)
	for _, cls := range repo.db.classes {
		if cls.TeacherID == teacherID {
			ids = append(ids, cls.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *classRepository) SetTeacherClasses(_ context.Context, teacherID string, classIDs []string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	wanted := toSet(classIDs)
	for id := range wanted {
		if _, ok := repo.db.classes[id]; !ok {
			return classroom.ErrNotFound
		}
	}
	for id, cls := range repo.db.classes {
		switch {
		case wanted[id]:
			cls.TeacherID = teacherID
		case cls.TeacherID == teacherID:
			cls.TeacherID = ""
		default:
			continue
		}
		repo.db.classes[id] = cls
	}
	return nil
}

func (repo *classRepository) member(studentID string) (classroom.Member, bool) {
	st, ok := repo.db.students[studentID]
	if !ok {
		return classroom.Member{}, false
	}
	return classroom.Member{ID: st.ID, Name: st.Name, StudentID: st.StudentID}, true
}

func (repo *classRepository) ClassMembers(_ context.Context, classIDs []string, _ ...core.DBExecutor) (map[string][]classroom.Member, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make(map[string][]classroom.Member, len(classIDs))
	for _, cid := range classIDs {
		for sid := range repo.db.members[cid] {
			if m, ok := repo.member(sid); ok {
				res[cid] = append(res[cid], m)
			}
		}
		sort.Slice(res[cid], func(i, j int) bool { return res[cid][i].StudentID < res[cid][j].StudentID })
	}
	return res, nil
}

func (repo *classRepository) GetMember(_ context.Context, ref string, byStudentID bool, _ ...core.DBExecutor) (classroom.Member, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if !byStudentID {
		if m, ok := repo.member(ref); ok {
			return m, nil
		}
		return classroom.Member{}, classroom.ErrStudentNotFound
	}
	for _, st := range repo.db.students {
		if st.StudentID == ref {
			return classroom.Member{ID: st.ID, Name: st.Name, StudentID: st.StudentID}, nil
		}
	}
	return classroom.Member{}, classroom.ErrStudentNotFound
}

func (repo *classRepository) FindMembersByStudentIDs(_ context.Context, studentIDs []string, _ ...core.DBExecutor) ([]classroom.Member, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := toSet(studentIDs)
	var res []classroom.Member
	for _, st := range repo.db.students {
		if ids[st.StudentID] {
			res = append(res, classroom.Member{ID: st.ID, Name: st.Name, StudentID: st.StudentID})
		}
	}
	return res, nil
}

func (repo *classRepository) AddMembers(_ context.Context, classID string, memberIDs []string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classes[classID]; !ok {
		return classroom.ErrNotFound
	}
	roster, ok := repo.db.members[classID]
	if !ok {
		roster = make(map[string]time.Time)
		repo.db.members[classID] = roster
	}
	now := time.Now().UTC()
	for _, id := range memberIDs {
		if _, ok := repo.db.students[id]; !ok {
			return classroom.ErrStudentNotFound
		}
		if _, ok := roster[id]; ok {
			return core.NewDefiniteConflict("studentId", id)
		}
	}
	for _, id := range memberIDs {
		roster[id] = now
	}
	return nil
}

func (repo *classRepository) RemoveMember(_ context.Context, classID, memberID string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.members[classID][memberID]; !ok {
		return classroom.ErrNotMember
	}
	delete(repo.db.members[classID], memberID)
	return nil
}

func (repo *classRepository) CreateSchedule(_ context.Context, sch classroom.Schedule, _ ...core.DBExecutor) (classroom.Schedule, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classes[sch.ClassID]; !ok {
		return classroom.Schedule{}, classroom.ErrNotFound
	}
	sch.ID = newID()
	repo.db.schedules[sch.ID] = sch
	return sch, nil
}

func (repo *classRepository) GetSchedule(_ context.Context, classID, id string, _ ...core.DBExecutor) (classroom.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sch, ok := repo.db.schedules[id]
	if !ok || sch.ClassID != classID {
		return classroom.Schedule{}, classroom.ErrScheduleNotFound
	}
	return sch, nil
}

func (repo *classRepository) QuerySchedules(_ context.Context, classID string, _ ...core.DBExecutor) ([]classroom.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]classroom.Schedule, 0)
	for _, sch := range repo.db.schedules {
		if sch.ClassID == classID {
			res = append(res, sch)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if di, dj := res[i].DayOfWeek.Index(), res[j].DayOfWeek.Index(); di != dj {
			return di < dj
		}
		return res[i].StartTime < res[j].StartTime
	})
	return res, nil
}

func (repo *classRepository) UpdateSchedule(_ context.Context, sch classroom.Schedule, _ ...core.DBExecutor) (classroom.Schedule, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.schedules[sch.ID]
	if !ok || orig.ClassID != sch.ClassID {
		return classroom.Schedule{}, classroom.ErrScheduleNotFound
	}
	sch.CreatedAt = orig.CreatedAt
	repo.db.schedules[sch.ID] = sch
	return sch, nil
}

func (repo *classRepository) DeleteSchedule(_ context.Context, classID, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sch, ok := repo.db.schedules[id]
	if !ok || sch.ClassID != classID {
		return classroom.ErrScheduleNotFound
	}
	delete(repo.db.schedules, id)
	return nil
}
