package testutil

import (
	"context"
	"testing"

	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/core/classroom"
)

const Password = "pwd"

func CreateAccount(t *testing.T, svc *account.Service, na account.NewAccount) account.Account {
	t.Helper()
	if na.Password == "" {
		na.Password = Password
	}
	acc, err := svc.Create(context.Background(), na)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acc
}

func CreateAdmin(t *testing.T, svc *account.Service, uname string) account.Account {
	return CreateAccount(t, svc, account.NewAccount{Username: uname, Role: account.RoleAdmin, Email: uname + "@test.cd"})
}

func CreateTeacher(t *testing.T, svc *account.Service, uname string) account.Account {
	return CreateAccount(t, svc, account.NewAccount{Username: uname, Role: account.RoleTeacher, Email: uname + "@test.cd"})
}

// CreateStudent creates a student account and returns its profile.
func CreateStudent(t *testing.T, svc *account.Service, studentID, name string) account.Student {
	t.Helper()
	acc := CreateAccount(t, svc, account.NewAccount{
		Username:  studentID,
		Role:      account.RoleStudent,
		StudentID: studentID,
		Name:      name,
	})
	st, err := svc.GetStudentProfile(context.Background(), acc)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}

// CreateClass creates a class owned by teacher.
func CreateClass(t *testing.T, svc *classroom.Service, teacher account.Account, name string) classroom.Class {
	t.Helper()
	cls, err := svc.CreateClass(context.Background(), teacher.Principal(), classroom.NewClass{Name: name})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}
