package search

import (
	"errors"
	"testing"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		name        string
		scopeName   string
		procedureID string
		wantName    string
		wantErr     bool
	}{
		{name: "empty defaults to all", scopeName: "", wantName: ScopeAll},
		{name: "all", scopeName: "all", wantName: ScopeAll},
		{name: "standspec", scopeName: "standspec", wantName: ScopeStandSpec},
		{name: "scheduling", scopeName: "scheduling", wantName: ScopeScheduling},
		{name: "mp", scopeName: "mp", wantName: ScopeMP},
		{name: "mp_only with procedure", scopeName: "mp_only", procedureID: "MP-7", wantName: ScopeMPOnly},
		{name: "mp_only without procedure", scopeName: "mp_only", wantErr: true},
		{name: "unknown scope", scopeName: "everything", wantErr: true},
		{name: "case sensitive", scopeName: "StandSpec", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := ParseScope(tt.scopeName, tt.procedureID)

			if tt.wantErr {
				if !errors.Is(err, ErrInvalidScope) {
					t.Errorf("ParseScope() error = %v, want ErrInvalidScope", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseScope() unexpected error: %v", err)
			}
			if scope.Name != tt.wantName {
				t.Errorf("ParseScope() Name = %v, want %v", scope.Name, tt.wantName)
			}
		})
	}
}

func TestScope_Matches(t *testing.T) {
	tests := []struct {
		name        string
		scope       Scope
		docType     string
		procedureID string
		want        bool
	}{
		{name: "all matches anything", scope: Scope{Name: ScopeAll}, docType: "standspec", want: true},
		{name: "standspec matches standspec", scope: Scope{Name: ScopeStandSpec}, docType: "standspec", want: true},
		{name: "standspec excludes mp", scope: Scope{Name: ScopeStandSpec}, docType: "mp", procedureID: "MP-7", want: false},
		{name: "mp matches every procedure", scope: Scope{Name: ScopeMP}, docType: "mp", procedureID: "MP-2", want: true},
		{name: "mp excludes scheduling", scope: Scope{Name: ScopeMP}, docType: "scheduling", want: false},
		{name: "mp_only matches its procedure", scope: Scope{Name: ScopeMPOnly, ProcedureID: "MP-7"}, docType: "mp", procedureID: "MP-7", want: true},
		{name: "mp_only excludes sibling procedure", scope: Scope{Name: ScopeMPOnly, ProcedureID: "MP-7"}, docType: "mp", procedureID: "MP-2", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scope.Matches(tt.docType, tt.procedureID); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.docType, tt.procedureID, got, tt.want)
			}
		})
	}
}
