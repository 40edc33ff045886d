package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ktirsdata/ntr_backend/utils"
)

func scopedTestContext(t *testing.T, isAdmin bool, scopeMda, scopeBranch int) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/revenues/override", nil)
	ctx := req.Context()
	ctx = utils.SetIsAdminInContext(ctx, isAdmin)
	if scopeMda > 0 {
		ctx = utils.SetMdaIdInContext(ctx, scopeMda)
	}
	if scopeBranch > 0 {
		ctx = utils.SetBranchIdInContext(ctx, scopeBranch)
	}
	c.Request = req.WithContext(ctx)
	return c, w
}

func TestRequireRevenueScope(t *testing.T) {
	cases := []struct {
		name        string
		isAdmin     bool
		scopeMda    int
		scopeBranch int
		mdaId       int
		branchId    int
		want        bool
	}{
		{"admin posts anywhere", true, 0, 0, 5, 0, true},
		{"officer within own mda", false, 3, 0, 3, 0, true},
		{"officer wrong mda", false, 3, 0, 4, 0, false},
		{"officer without scope", false, 0, 0, 3, 0, false},
		{"branch officer own branch", false, 3, 7, 3, 7, true},
		{"branch officer wrong branch", false, 3, 7, 3, 8, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := scopedTestContext(t, tc.isAdmin, tc.scopeMda, tc.scopeBranch)
			got := requireRevenueScope(c, tc.mdaId, tc.branchId)
			if got != tc.want {
				t.Fatalf("requireRevenueScope = %v, want %v", got, tc.want)
			}
			if !tc.want && w.Code != http.StatusForbidden {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
			}
		})
	}
}

// A malformed body is a plain 400, not a panic inside the validator mapping.
func TestRespondBindingErrorMalformedJson(t *testing.T) {
	var payload struct{}
	err := json.Unmarshal([]byte("{"), &payload)
	if err == nil {
		t.Fatalf("expected a syntax error")
	}

	c, w := scopedTestContext(t, true, 0, 0)
	respondBindingError(c, err)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
