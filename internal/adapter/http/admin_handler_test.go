package http

import (
	"bytes"
	"encoding/json"
	stdhttp "net/http"
	"testing"

	"microloan-bazaar/internal/domain/policy"
)

func TestGrantRole_OwnerOnly(t *testing.T) {
	f := newFixture(t)

	c, rec := f.request(stdhttp.MethodPost, "/roles/credit_analyst/"+analystHex, borrowerHex, nil)
	c.SetParamNames("role", "principal")
	c.SetParamValues("credit_analyst", analystHex)
	if err := f.admin.GrantRole(c); err != nil {
		t.Fatalf("GrantRole error: %v", err)
	}
	if rec.Code != stdhttp.StatusForbidden {
		t.Fatalf("status = %d, want 403, body %s", rec.Code, rec.Body.String())
	}
}

func TestGrantRole_Success(t *testing.T) {
	f := newFixture(t)

	c, rec := f.request(stdhttp.MethodPost, "/roles/credit_analyst/"+analystHex, ownerHex, nil)
	c.SetParamNames("role", "principal")
	c.SetParamValues("credit_analyst", analystHex)
	if err := f.admin.GrantRole(c); err != nil {
		t.Fatalf("GrantRole error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var m map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &m)
	if m["role"] != "credit_analyst" || m["granted"] != "true" {
		t.Fatalf("body = %v", m)
	}

	// analyst can now request an evaluation
	loanID := f.submitLoan(t)
	c2, rec2 := f.request(stdhttp.MethodPost, "/loans/"+loanID+"/evaluation", analystHex, nil)
	c2.SetParamNames("loan_id")
	c2.SetParamValues(loanID)
	if err := f.evals.Request(c2); err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if rec2.Code != stdhttp.StatusAccepted {
		t.Fatalf("status = %d, want 202, body %s", rec2.Code, rec2.Body.String())
	}
}

func TestGrantRole_UnknownRole(t *testing.T) {
	f := newFixture(t)

	c, rec := f.request(stdhttp.MethodPost, "/roles/janitor/"+analystHex, ownerHex, nil)
	c.SetParamNames("role", "principal")
	c.SetParamValues("janitor", analystHex)
	if err := f.admin.GrantRole(c); err != nil {
		t.Fatalf("GrantRole error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGrantRole_BadPrincipalParam(t *testing.T) {
	f := newFixture(t)

	c, rec := f.request(stdhttp.MethodPost, "/roles/credit_analyst/xyz", ownerHex, nil)
	c.SetParamNames("role", "principal")
	c.SetParamValues("credit_analyst", "xyz")
	if err := f.admin.GrantRole(c); err != nil {
		t.Fatalf("GrantRole error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRevokeRole(t *testing.T) {
	f := newFixture(t)

	grant, rec := f.request(stdhttp.MethodPost, "/roles/loan_officer/"+analystHex, ownerHex, nil)
	grant.SetParamNames("role", "principal")
	grant.SetParamValues("loan_officer", analystHex)
	if err := f.admin.GrantRole(grant); err != nil || rec.Code != stdhttp.StatusOK {
		t.Fatalf("GrantRole: err=%v status=%d", err, rec.Code)
	}

	revoke, rec2 := f.request(stdhttp.MethodDelete, "/roles/loan_officer/"+analystHex, ownerHex, nil)
	revoke.SetParamNames("role", "principal")
	revoke.SetParamValues("loan_officer", analystHex)
	if err := f.admin.RevokeRole(revoke); err != nil {
		t.Fatalf("RevokeRole error: %v", err)
	}
	if rec2.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200", rec2.Code)
	}
	var m map[string]string
	_ = json.Unmarshal(rec2.Body.Bytes(), &m)
	if m["granted"] != "false" {
		t.Fatalf("body = %v", m)
	}
}

func TestGetPolicy_Defaults(t *testing.T) {
	f := newFixture(t)

	c, rec := f.request(stdhttp.MethodGet, "/policy", "", nil)
	if err := f.admin.GetPolicy(c); err != nil {
		t.Fatalf("GetPolicy error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var p policy.Policy
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if p.MinCreditScore != 550 || p.MaxLoanAmount != 100_000 {
		t.Fatalf("policy = %+v", p)
	}
}

func TestUpdatePolicy_BadBounds(t *testing.T) {
	f := newFixture(t)

	bad := policy.Default()
	bad.MinLoanAmount = bad.MaxLoanAmount + 1
	b, _ := json.Marshal(bad)
	c, rec := f.request(stdhttp.MethodPut, "/policy", ownerHex, bytes.NewReader(b))
	if err := f.admin.UpdatePolicy(c); err != nil {
		t.Fatalf("UpdatePolicy error: %v", err)
	}
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body %s", rec.Code, rec.Body.String())
	}
	var er ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &er)
	if er.Code != "policy_violation" {
		t.Fatalf("code = %q, want policy_violation", er.Code)
	}
}

func TestUpdatePolicy_Success(t *testing.T) {
	f := newFixture(t)

	next := policy.Default()
	next.MinCreditScore = 600
	b, _ := json.Marshal(next)
	c, rec := f.request(stdhttp.MethodPut, "/policy", ownerHex, bytes.NewReader(b))
	if err := f.admin.UpdatePolicy(c); err != nil {
		t.Fatalf("UpdatePolicy error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var p policy.Policy
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if p.MinCreditScore != 600 {
		t.Fatalf("MinCreditScore = %d, want 600", p.MinCreditScore)
	}

	// non-owner cannot change it back
	c2, rec2 := f.request(stdhttp.MethodPut, "/policy", borrowerHex, bytes.NewReader(b))
	if err := f.admin.UpdatePolicy(c2); err != nil {
		t.Fatalf("UpdatePolicy error: %v", err)
	}
	if rec2.Code != stdhttp.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec2.Code)
	}
}
