package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
)

func TestAllowedMIMEType(t *testing.T) {
	tests := []struct {
		ct   string
		want bool
	}{
		{ct: MIMETypeXLSX, want: true},
		{ct: MIMETypeXLS, want: true},
		{ct: "text/csv; charset=utf-8", want: true},
		{ct: "application/pdf"},
		{ct: "image/png"},
		{ct: ""},
	}
	for _, tt := range tests {
		t.Run(tt.ct, func(t *testing.T) {
			assert.Equal(t, tt.want, AllowedMIMEType(tt.ct))
		})
	}
}

func TestParse(t *testing.T) {
	grid := Grid{
		{"Username", "Password", "Role"},
		{"alice", "secret", "teacher"},
	}
	xlsx, err := EncodeXLSX(grid)
	require.NoError(t, err)

	tests := []struct {
		name    string
		data    []byte
		want    Grid
		wantErr error
	}{
		{name: "xlsx", data: xlsx, want: grid},
		{name: "csv", data: []byte("Username,Password,Role\nalice,secret,teacher\n"), want: grid},
		{name: "csv with BOM", data: append([]byte{0xEF, 0xBB, 0xBF}, []byte("Username,Password,Role\nalice,secret,teacher")...), want: grid},
		{name: "legacy xls", data: []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00}, wantErr: ErrLegacyFormat},
		{name: "binary", data: []byte{0x89, 'P', 'N', 'G', 0x00, 0x01}, wantErr: ErrUnsupportedType},
		{name: "broken zip", data: []byte("PK\x03\x04garbage"), wantErr: ErrInvalidFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.data)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract(t *testing.T) {
	grid := Grid{
		{" UserName ", "PASSWORD", "", "role", "username"},
		{"  alice ", "pwd", "ignored", "teacher", "shadowed"},
		{"", "", "", ""},
		{"bob"},
	}

	records, err := Extract(grid, "username", "password", "role")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 2, records[0].Row)
	assert.Equal(t, map[string]string{"username": "alice", "password": "pwd", "role": "teacher"}, records[0].Fields)

	assert.Equal(t, 4, records[1].Row)
	assert.Equal(t, "bob", records[1].Get("username"))
	_, ok := records[1].Lookup("password")
	assert.False(t, ok, "cells beyond the row length are absent")
}

func TestExtract_errors(t *testing.T) {
	tests := []struct {
		name    string
		grid    Grid
		wantMsg string
	}{
		{name: "empty grid", grid: nil, wantMsg: "the file has no header row"},
		{name: "blank header", grid: Grid{{" ", ""}, {"a"}}, wantMsg: "the file has no header row"},
		{name: "no data rows", grid: Grid{{"username", "password", "role"}, {"", " "}}, wantMsg: "the file has no data rows"},
		{name: "missing columns", grid: Grid{{"username"}, {"alice"}}, wantMsg: "missing required columns: password, role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.grid, "username", "password", "role")
			require.Error(t, err)
			fErr, ok := core.FirstFieldError(err, nil)
			require.True(t, ok)
			assert.Equal(t, "file", fErr.Field)
			assert.Equal(t, tt.wantMsg, fErr.Error)
		})
	}
}

func TestReport(t *testing.T) {
	r := NewReport(5)
	r.Created = 2
	r.Skip(3, OutcomeInvalid, "password: this field is required")
	r.Skip(4, OutcomeDuplicate, "username already exists")
	r.SkipNotFound(5, "DH00000009")

	assert.True(t, r.Balanced())
	assert.Equal(t, 3, r.Skipped())
	assert.Equal(t, []string{"DH00000009"}, r.NotFound)
	assert.Len(t, r.Rejections, 3)

	data, err := r.RejectionsCSV()
	require.NoError(t, err)
	assert.Equal(t, "row,outcome,reason\n"+
		"3,invalid,password: this field is required\n"+
		"4,duplicate,username already exists\n"+
		"5,not_found,DH00000009 not found\n", string(data))

	r.Created++
	assert.False(t, r.Balanced())
}
