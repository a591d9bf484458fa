package validator

import "testing"

type registerPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=50"`
}

type usernamePayload struct {
	Username string `json:"username" validate:"required,username"`
}

func TestValidateStructCollectsFailures(t *testing.T) {
	err := ValidateStruct(&registerPayload{Email: "not-an-email", Password: "abc"})
	if err == nil {
		t.Fatal("expected validation failures")
	}

	failures, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(failures) != 2 {
		t.Fatalf("expected 2 failures, got %d: %v", len(failures), failures)
	}
	if failures[0].Field != "email" {
		t.Fatalf("expected json tag names, got %q", failures[0].Field)
	}
}

func TestValidateStructPasses(t *testing.T) {
	err := ValidateStruct(&registerPayload{Email: "a@x.com", Password: "secret-password"})
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
}

func TestUsernameRule(t *testing.T) {
	cases := map[string]bool{
		"jane_doe":         true,
		"a1b2":             true,
		"abc":              false, // too short
		"0123456789":       false, // digits only
		"white space":      false,
		"way_too_long_username_here": false,
	}

	for input, want := range cases {
		err := ValidateStruct(&usernamePayload{Username: input})
		if (err == nil) != want {
			t.Fatalf("username %q: expected valid=%v, got err=%v", input, want, err)
		}
	}
}
