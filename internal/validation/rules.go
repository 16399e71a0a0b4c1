package validation

import "github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"

// SignUp checks the shape of a local sign-up. Uniqueness is checked by the caller.
func SignUp(req *dto.SignUpRequest) *Errors {
	errs := New()
	errs.Struct(req)
	if !errs.Has("password") && !errs.Has("password2") && req.Password != req.Password2 {
		errs.Add("password", MsgPasswordMismatch)
	}
	return errs
}

func SignOut(req *dto.SignOutRequest, requirePassword bool) *Errors {
	errs := New()
	if requirePassword && req.Password == "" {
		errs.Add("password", MsgRequired)
	}
	return errs
}

// Edit validates only the supplied fields. GOOGLE accounts may not change
// the email they are keyed on nor set a password.
func Edit(req *dto.EditUserRequest, local bool) *Errors {
	errs := New()
	if local && req.CurrentPassword == "" {
		errs.Add("current_password", MsgRequired)
	}
	errs.Struct(req)

	if !local {
		if req.Email != nil {
			errs.Add("email", MsgNotEditable)
		}
		if req.Password != nil {
			errs.Add("password", MsgNotEditable)
		}
		return errs
	}

	if req.Password != nil && !errs.Has("password") {
		switch {
		case req.Password2 == nil:
			errs.Add("password2", MsgRequired)
		case *req.Password != *req.Password2:
			errs.Add("password", MsgPasswordMismatch)
		}
	}
	return errs
}

func GoogleSignUp(req *dto.GoogleSignUp) *Errors {
	errs := New()
	errs.Struct(req)
	return errs
}

func Login(req *dto.LoginRequest) *Errors {
	errs := New()
	errs.Struct(req)
	return errs
}
