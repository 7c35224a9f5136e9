package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/account"
)

type accountRepository struct {
	db *DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db}
}

// conflict mirrors the unique constraints of the accounts table.
func (repo *accountRepository) conflict(acc account.Account) error {
	for _, other := range repo.db.accounts {
		if other.ID == acc.ID {
			continue
		}
		if other.Username == acc.Username {
			return core.NewDefiniteConflict("username", acc.Username)
		}
		if acc.Email != "" && other.Email == acc.Email {
			return core.NewDefiniteConflict("email", acc.Email)
		}
	}
	return nil
}

func (repo *accountRepository) CreateAccounts(_ context.Context, accounts []account.Account, _ ...core.DBExecutor) ([]account.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	created := make([]account.Account, 0, len(accounts))
	for _, acc := range accounts {
		acc.ID = newID()
		if err := repo.conflict(acc); err != nil {
			// statement level atomicity
			for _, c := range created {
				delete(repo.db.accounts, c.ID)
			}
			return nil, err
		}
		repo.db.accounts[acc.ID] = acc
		created = append(created, acc)
	}
	return created, nil
}

func (repo *accountRepository) CreateStudents(_ context.Context, students []account.Student, _ ...core.DBExecutor) ([]account.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	taken := make(map[string]bool, len(repo.db.students))
	for _, st := range repo.db.students {
		taken[st.StudentID] = true
	}
	for _, st := range students {
		if taken[st.StudentID] {
			return nil, core.NewDefiniteConflict("studentId", st.StudentID)
		}
		taken[st.StudentID] = true
	}

	created := make([]account.Student, 0, len(students))
	for _, st := range students {
		st.ID = newID()
		repo.db.students[st.ID] = st
		created = append(created, st)
	}
	return created, nil
}

func (repo *accountRepository) GetAccount(_ context.Context, filter account.GetFilter, _ ...core.DBExecutor) (account.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if acc, ok := repo.db.accounts[filter.ID]; ok {
			return acc, nil
		}
		return account.Account{}, account.ErrNotFound
	}
	for _, acc := range repo.db.accounts {
		switch {
		case filter.Email != "" && acc.Email == filter.Email:
			return acc, nil
		case filter.UsernameOrEmail != "" &&
			(acc.Username == filter.UsernameOrEmail || (acc.Email != "" && acc.Email == filter.UsernameOrEmail)):
			return acc, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) GetStudentByAccount(_ context.Context, accountID string, _ ...core.DBExecutor) (account.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, st := range repo.db.students {
		if st.AccountID == accountID {
			return st, nil
		}
	}
	return account.Student{}, account.ErrNotFound
}

func (repo *accountRepository) FindCollisions(_ context.Context, usernames, emails []string, _ ...core.DBExecutor) ([]account.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	unames := toSet(usernames)
	mails := toSet(emails)
	var res []account.Account
	for _, acc := range repo.db.accounts {
		if unames[acc.Username] || (acc.Email != "" && mails[acc.Email]) {
			res = append(res, acc)
		}
	}
	return res, nil
}

func (repo *accountRepository) FindStudentsByStudentIDs(_ context.Context, studentIDs []string, _ ...core.DBExecutor) ([]account.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := toSet(studentIDs)
	var res []account.Student
	for _, st := range repo.db.students {
		if ids[st.StudentID] {
			res = append(res, st)
		}
	}
	return res, nil
}

func (repo *accountRepository) QueryAccounts(_ context.Context, filter account.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]account.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	res := make([]account.Account, 0)
	for _, acc := range repo.db.accounts {
		if len(filter.Roles) > 0 && !hasRole(filter.Roles, acc.Role) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(acc.Username), search) &&
			!strings.Contains(strings.ToLower(acc.Email), search) {
			continue
		}
		res = append(res, acc)
	}

	ordering = core.FilterOrderings(ordering, map[string]string{"username": "username", "createdAt": "createdAt"})
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "username", Ascending: true}}
	}
	sort.SliceStable(res, func(i, j int) bool {
		for _, ord := range ordering {
			var less, greater bool
			switch ord.Field {
			case "username":
				less, greater = res[i].Username < res[j].Username, res[i].Username > res[j].Username
			case "createdAt":
				less, greater = res[i].CreatedAt.Before(res[j].CreatedAt), res[i].CreatedAt.After(res[j].CreatedAt)
			}
			if less || greater {
				return less == ord.Ascending
			}
		}
		return false
	})
	return res, nil
}

func (repo *accountRepository) UpdateAccount(_ context.Context, acc account.Account, _ ...core.DBExecutor) (account.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.accounts[acc.ID]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	if err := repo.conflict(acc); err != nil {
		return account.Account{}, err
	}
	acc.Role = orig.Role
	acc.StudentID = orig.StudentID
	acc.CreatedAt = orig.CreatedAt
	if acc.PasswordHash == nil {
		acc.PasswordHash = orig.PasswordHash
	}
	repo.db.accounts[acc.ID] = acc
	return acc, nil
}

func (repo *accountRepository) DeleteAccount(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.accounts[id]; !ok {
		return account.ErrNotFound
	}
	delete(repo.db.accounts, id)

	// ON DELETE CASCADE / SET NULL
	for sid, st := range repo.db.students {
		if st.AccountID == id {
			delete(repo.db.students, sid)
			for _, roster := range repo.db.members {
				delete(roster, sid)
			}
		}
	}
	for cid, cls := range repo.db.classes {
		if cls.TeacherID == id {
			cls.TeacherID = ""
			repo.db.classes[cid] = cls
		}
	}
	return nil
}

func toSet(vals []string) map[string]bool {
	set := make(map[string]bool, len(vals))
	for _, v := range vals {
		set[v] = true
	}
	return set
}

func hasRole(roles []account.Role, role account.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
