package services

import (
	"bytes"
	"errors"
	"time"

	"github.com/yukikurage/employee-admin-api/internal/models"
	"github.com/yukikurage/employee-admin-api/internal/storage"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func pngUpload() *storage.Upload {
	content := []byte("png")
	return &storage.Upload{Filename: "me.png", Size: int64(len(content)), Content: bytes.NewReader(content)}
}

func (s *ServiceSuite) TestCreateUser_ThenProfileRoundTrip() {
	created, err := s.users.CreateUser(s.ctx, CreateUserInput{
		Email:     " New.Employee@Corp.test ",
		FirstName: "New",
		Surname:   "Employee",
		Password:  "secret123",
		Role:      models.RoleEmployee,
	})
	s.Require().NoError(err)
	s.Equal("new.employee@corp.test", created.User.Email)
	s.Equal(models.RoleEmployee, created.Role)

	profile, err := s.users.GetProfile(s.ctx, created.User.ID)
	s.Require().NoError(err)
	s.Equal(models.RoleEmployee, profile.User.Role)
	s.Empty(profile.Projects)

	role, err := s.roleCache.GetRole(s.ctx, created.User.ID)
	s.Require().NoError(err)
	s.Equal(models.RoleEmployee, role)
}

func (s *ServiceSuite) TestCreateUser_EmailInUseIncludingDeleted() {
	deleted := s.createUser("gone@corp.test", models.RoleEmployee)
	s.Require().NoError(s.db.Delete(&models.User{}, deleted.ID).Error)

	_, err := s.users.CreateUser(s.ctx, CreateUserInput{
		Email: "gone@corp.test", FirstName: "A", Surname: "B", Password: "secret123", Role: models.RoleEmployee,
	})
	s.ErrorIs(err, ErrEmailInUse)
	s.assertKind(err, KindValidation)
}

func (s *ServiceSuite) TestCreateUser_ValidationFields() {
	_, err := s.users.CreateUser(s.ctx, CreateUserInput{
		Email:    "not-an-email",
		Password: "short",
		Role:     models.Role(9),
	})
	s.assertKind(err, KindValidation)

	fields := FieldsOf(err)
	s.Contains(fields, "email")
	s.Contains(fields, "first_name")
	s.Contains(fields, "password")
	s.Contains(fields, "role")

	_, err = s.users.CreateUser(s.ctx, CreateUserInput{
		Email: "a@corp.test", FirstName: "A", Surname: "B", Password: "lettersonly", Role: models.RoleEmployee,
	})
	s.assertKind(err, KindValidation)
	s.Contains(FieldsOf(err), "password")
}

func (s *ServiceSuite) TestCreateUser_FailureRemovesUploadedPicture() {
	restore := s.failUserInserts()
	_, err := s.users.CreateUser(s.ctx, CreateUserInput{
		Email: "pic@corp.test", FirstName: "A", Surname: "B", Password: "secret123",
		Role: models.RoleEmployee, ProfilePicture: pngUpload(),
	})
	restore()

	s.Require().Error(err)
	s.Equal([]string{"img-1.png"}, s.images.deleted)
	s.False(s.images.has("img-1.png"))

	inUse, err := s.uow.Users.EmailInUse(s.ctx, "pic@corp.test")
	s.Require().NoError(err)
	s.False(inUse)
}

func (s *ServiceSuite) TestCreateUser_WithPicture() {
	created, err := s.users.CreateUser(s.ctx, CreateUserInput{
		Email: "pic@corp.test", FirstName: "A", Surname: "B", Password: "secret123",
		Role: models.RoleAdministrator, ProfilePicture: pngUpload(),
	})
	s.Require().NoError(err)
	s.Require().NotNil(created.ProfilePictureURL)
	s.Equal("https://img.test/img-1.png", *created.ProfilePictureURL)
	s.True(s.images.has("img-1.png"))
}

func (s *ServiceSuite) TestDoesUserExist_SoftDeleted() {
	u := s.createUser("e@corp.test", models.RoleEmployee)
	s.Require().NoError(s.users.DeleteUser(s.ctx, u.ID))

	exists, err := s.users.DoesUserExist(s.ctx, u.ID, false)
	s.Require().NoError(err)
	s.False(exists)

	exists, err = s.users.DoesUserExist(s.ctx, u.ID, true)
	s.Require().NoError(err)
	s.True(exists)
}

func (s *ServiceSuite) TestDeleteUser_OpenTasksBlock() {
	admin := s.createUser("admin@corp.test", models.RoleAdministrator)
	emp := s.createUser("e@corp.test", models.RoleEmployee)
	p := s.createProject("P")
	s.addMember(p.ID, emp.ID)
	s.createTask(p.ID, admin.ID, emp.ID, false)

	err := s.users.DeleteUser(s.ctx, emp.ID)
	s.ErrorIs(err, ErrUncompletedTasks)
	s.assertKind(err, KindConflict)

	var reloaded models.User
	s.Require().NoError(s.db.Unscoped().First(&reloaded, emp.ID).Error)
	s.False(reloaded.DeletedAt.Valid)
	s.True(s.isMember(p.ID, emp.ID))
}

func (s *ServiceSuite) TestDeleteUser_PurgesMembershipsAndPicture() {
	admin := s.createUser("admin@corp.test", models.RoleAdministrator)
	emp := s.createUser("e@corp.test", models.RoleEmployee)
	pic := "old.png"
	s.Require().NoError(s.db.Model(emp).Update("profile_picture_name", pic).Error)
	s.images.files[pic] = true

	p1 := s.createProject("P1")
	p2 := s.createProject("P2")
	s.addMember(p1.ID, emp.ID)
	s.addMember(p2.ID, emp.ID)
	s.createTask(p1.ID, admin.ID, emp.ID, true)

	s.Require().NoError(s.users.DeleteUser(s.ctx, emp.ID))

	s.False(s.isMember(p1.ID, emp.ID))
	s.False(s.isMember(p2.ID, emp.ID))
	s.False(s.images.has(pic))

	var reloaded models.User
	s.Require().NoError(s.db.Unscoped().First(&reloaded, emp.ID).Error)
	s.True(reloaded.DeletedAt.Valid)
	s.Nil(reloaded.ProfilePictureName)

	err := s.users.DeleteUser(s.ctx, emp.ID)
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *ServiceSuite) TestDeleteUser_AdministratorSkipsTaskCheck() {
	admin := s.createUser("admin@corp.test", models.RoleAdministrator)
	s.Require().NoError(s.users.DeleteUser(s.ctx, admin.ID))

	err := s.users.DeleteUser(s.ctx, 999)
	s.assertKind(err, KindNotFound)
}

func (s *ServiceSuite) TestUpdateUser_Authorization() {
	admin := s.createUser("admin@corp.test", models.RoleAdministrator)
	e1 := s.createUser("e1@corp.test", models.RoleEmployee)
	e2 := s.createUser("e2@corp.test", models.RoleEmployee)
	in := UpdateUserInput{FirstName: strPtr("Renamed")}

	_, err := s.users.UpdateUser(s.ctx, e1.ID, e2.ID, in)
	s.ErrorIs(err, ErrUnauthorized)

	_, err = s.users.UpdateUser(s.ctx, 999, e2.ID, in)
	s.ErrorIs(err, ErrUnauthorized)

	_, err = s.users.UpdateUser(s.ctx, admin.ID, 999, in)
	s.ErrorIs(err, ErrUserNotFound)

	updated, err := s.users.UpdateUser(s.ctx, e1.ID, e1.ID, in)
	s.Require().NoError(err)
	s.Equal("Renamed", updated.User.FirstName)
	s.Equal("User", updated.User.Surname)

	updated, err = s.users.UpdateUser(s.ctx, admin.ID, e2.ID, UpdateUserInput{Surname: strPtr("Changed")})
	s.Require().NoError(err)
	s.Equal("Changed", updated.User.Surname)
	s.Equal(models.RoleEmployee, updated.Role)
}

func (s *ServiceSuite) TestUpdateUser_EmptyAndInvalid() {
	e := s.createUser("e@corp.test", models.RoleEmployee)
	other := s.createUser("other@corp.test", models.RoleEmployee)

	_, err := s.users.UpdateUser(s.ctx, e.ID, e.ID, UpdateUserInput{})
	s.ErrorIs(err, ErrEmptyUpdate)

	_, err = s.users.UpdateUser(s.ctx, e.ID, e.ID, UpdateUserInput{FirstName: strPtr("")})
	s.assertKind(err, KindValidation)
	s.Contains(FieldsOf(err), "first_name")

	_, err = s.users.UpdateUser(s.ctx, e.ID, e.ID, UpdateUserInput{Email: strPtr("OTHER@corp.test")})
	s.ErrorIs(err, ErrEmailInUse)

	updated, err := s.users.UpdateUser(s.ctx, other.ID, other.ID, UpdateUserInput{Email: strPtr("other@corp.test")})
	s.Require().NoError(err)
	s.Equal("other@corp.test", updated.User.Email)
}

func (s *ServiceSuite) TestUpdateUser_ReplacesPictureAfterCommit() {
	e := s.createUser("e@corp.test", models.RoleEmployee)
	s.Require().NoError(s.db.Model(e).Update("profile_picture_name", "old.png").Error)
	s.images.files["old.png"] = true

	updated, err := s.users.UpdateUser(s.ctx, e.ID, e.ID, UpdateUserInput{ProfilePicture: pngUpload()})
	s.Require().NoError(err)
	s.Require().NotNil(updated.ProfilePictureURL)
	s.Equal("https://img.test/img-1.png", *updated.ProfilePictureURL)
	s.True(s.images.has("img-1.png"))
	s.False(s.images.has("old.png"))
}

func (s *ServiceSuite) TestUpdateUser_FailedSaveKeepsOldPicture() {
	e := s.createUser("e@corp.test", models.RoleEmployee)
	s.Require().NoError(s.db.Model(e).Update("profile_picture_name", "old.png").Error)
	s.images.files["old.png"] = true
	s.images.saveErr = errors.New("bucket unavailable")

	_, err := s.users.UpdateUser(s.ctx, e.ID, e.ID, UpdateUserInput{ProfilePicture: pngUpload(), FirstName: strPtr("X")})
	s.Require().Error(err)
	s.True(s.images.has("old.png"))

	var reloaded models.User
	s.Require().NoError(s.db.First(&reloaded, e.ID).Error)
	s.Equal("Test", reloaded.FirstName)
	s.Require().NotNil(reloaded.ProfilePictureName)
	s.Equal("old.png", *reloaded.ProfilePictureName)
}

func (s *ServiceSuite) TestVerifyCredentials() {
	e := s.createUser("e@corp.test", models.RoleEmployee)

	result, err := s.users.VerifyCredentials(s.ctx, VerifyCredentialsInput{Email: "e@corp.test", Password: "wrong"})
	s.Require().NoError(err)
	s.Nil(result)

	result, err = s.users.VerifyCredentials(s.ctx, VerifyCredentialsInput{Email: "nobody@corp.test", Password: testPassword})
	s.Require().NoError(err)
	s.Nil(result)

	result, err = s.users.VerifyCredentials(s.ctx, VerifyCredentialsInput{Email: "E@corp.test", Password: testPassword})
	s.Require().NoError(err)
	s.Require().NotNil(result)
	s.Equal(e.ID, result.User.User.ID)
	s.Equal(models.RoleEmployee, result.User.Role)
	s.NotEmpty(result.Tokens.AccessToken)

	var reloaded models.User
	s.Require().NoError(s.db.First(&reloaded, e.ID).Error)
	s.Require().NotNil(reloaded.RefreshToken)
	s.Equal(result.Tokens.RefreshToken, *reloaded.RefreshToken)
}

func (s *ServiceSuite) TestVerifyCredentials_DeletedUserDoesNotMatch() {
	e := s.createUser("e@corp.test", models.RoleEmployee)
	s.Require().NoError(s.users.DeleteUser(s.ctx, e.ID))

	result, err := s.users.VerifyCredentials(s.ctx, VerifyCredentialsInput{Email: "e@corp.test", Password: testPassword})
	s.Require().NoError(err)
	s.Nil(result)
}

func (s *ServiceSuite) TestGetAllUsers_FilterAndDeleted() {
	s.createUser("admin@corp.test", models.RoleAdministrator)
	e1 := s.createUser("e1@corp.test", models.RoleEmployee)
	s.createUser("e2@corp.test", models.RoleEmployee)
	s.Require().NoError(s.db.Delete(&models.User{}, e1.ID).Error)

	all, total, err := s.users.GetAllUsers(s.ctx, UserListFilter{})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Len(all, 2)

	employee := models.RoleEmployee
	employees, _, err := s.users.GetAllUsers(s.ctx, UserListFilter{Role: &employee, IncludeDeleted: true})
	s.Require().NoError(err)
	s.Require().Len(employees, 2)
	for _, u := range employees {
		s.Equal(models.RoleEmployee, u.Role)
	}
	s.True(employees[0].User.IsDeleted())

	page, total, err := s.users.GetAllUsers(s.ctx, UserListFilter{IncludeDeleted: true, Page: 2, PageSize: 2})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Len(page, 1)
}

func (s *ServiceSuite) TestGetProfile_ProjectsWithOwnTasks() {
	admin := s.createUser("admin@corp.test", models.RoleAdministrator)
	e1 := s.createUser("e1@corp.test", models.RoleEmployee)
	e2 := s.createUser("e2@corp.test", models.RoleEmployee)
	p1 := s.createProject("P1")
	p2 := s.createProject("P2")
	s.addMember(p1.ID, e1.ID)
	s.addMember(p2.ID, e1.ID)
	s.addMember(p1.ID, e2.ID)
	mine := s.createTask(p1.ID, admin.ID, e1.ID, false)
	s.createTask(p1.ID, admin.ID, e2.ID, false)

	profile, err := s.users.GetProfile(s.ctx, e1.ID)
	s.Require().NoError(err)
	s.Require().Len(profile.Projects, 2)
	s.Equal(p1.ID, profile.Projects[0].Project.ID)
	s.Require().Len(profile.Projects[0].Tasks, 1)
	s.Equal(mine.ID, profile.Projects[0].Tasks[0].ID)
	s.Empty(profile.Projects[1].Tasks)

	_, err = s.users.GetProfile(s.ctx, 999)
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *ServiceSuite) TestUpdatePassword() {
	e := s.createUser("e@corp.test", models.RoleEmployee)

	err := s.users.UpdatePassword(s.ctx, e.ID, UpdatePasswordInput{CurrentPassword: "nope", NewPassword: "newpass123"})
	s.ErrorIs(err, ErrInvalidPassword)

	err = s.users.UpdatePassword(s.ctx, e.ID, UpdatePasswordInput{CurrentPassword: testPassword, NewPassword: "weak"})
	s.assertKind(err, KindValidation)

	err = s.users.UpdatePassword(s.ctx, 999, UpdatePasswordInput{CurrentPassword: testPassword, NewPassword: "newpass123"})
	s.ErrorIs(err, ErrUnauthorized)

	s.Require().NoError(s.users.UpdatePassword(s.ctx, e.ID, UpdatePasswordInput{CurrentPassword: testPassword, NewPassword: "newpass123"}))

	result, err := s.users.VerifyCredentials(s.ctx, VerifyCredentialsInput{Email: e.Email, Password: "newpass123"})
	s.Require().NoError(err)
	s.NotNil(result)
}

func (s *ServiceSuite) TestRefreshTokens() {
	e := s.createUser("e@corp.test", models.RoleEmployee)
	login, err := s.users.VerifyCredentials(s.ctx, VerifyCredentialsInput{Email: e.Email, Password: testPassword})
	s.Require().NoError(err)
	s.Require().NotNil(login)

	_, err = s.auth.RefreshTokens(s.ctx, RefreshInput{AccessToken: login.Tokens.AccessToken, RefreshToken: "forged"})
	s.ErrorIs(err, ErrUnauthorized)

	_, err = s.auth.RefreshTokens(s.ctx, RefreshInput{AccessToken: "garbage", RefreshToken: login.Tokens.RefreshToken})
	s.ErrorIs(err, ErrUnauthorized)

	refreshed, err := s.auth.RefreshTokens(s.ctx, RefreshInput{AccessToken: login.Tokens.AccessToken, RefreshToken: login.Tokens.RefreshToken})
	s.Require().NoError(err)
	s.NotEqual(login.Tokens.RefreshToken, refreshed.Tokens.RefreshToken)

	_, err = s.auth.RefreshTokens(s.ctx, RefreshInput{AccessToken: login.Tokens.AccessToken, RefreshToken: login.Tokens.RefreshToken})
	s.ErrorIs(err, ErrUnauthorized, "rotated token must not be reusable")

	s.auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.auth.RefreshTokens(s.ctx, RefreshInput{AccessToken: refreshed.Tokens.AccessToken, RefreshToken: refreshed.Tokens.RefreshToken})
	s.ErrorIs(err, ErrExpiredRefreshToken)
}

func (s *ServiceSuite) TestIsUserAuthorizedAndRevoke() {
	admin := s.createUser("admin@corp.test", models.RoleAdministrator)
	e := s.createUser("e@corp.test", models.RoleEmployee)

	ok, err := s.auth.IsUserAuthorized(s.ctx, admin.ID, models.RoleAdministrator)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.auth.IsUserAuthorized(s.ctx, e.ID, models.RoleAdministrator)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.db.Delete(&models.User{}, e.ID).Error)
	ok, err = s.auth.IsUserAuthorized(s.ctx, e.ID, models.AllRoles()...)
	s.Require().NoError(err)
	s.False(ok)

	login, err := s.users.VerifyCredentials(s.ctx, VerifyCredentialsInput{Email: admin.Email, Password: testPassword})
	s.Require().NoError(err)
	s.Require().NoError(s.auth.RevokeRefreshToken(s.ctx, admin.ID))
	_, err = s.auth.RefreshTokens(s.ctx, RefreshInput{AccessToken: login.Tokens.AccessToken, RefreshToken: login.Tokens.RefreshToken})
	s.ErrorIs(err, ErrUnauthorized)
}

func (s *ServiceSuite) TestIssueTokens_StaleCopyCannotRestoreDeletedUser() {
	e := s.createUser("e@corp.test", models.RoleEmployee)
	stale, err := s.uow.Users.FindByID(s.ctx, e.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.users.DeleteUser(s.ctx, e.ID))

	_, err = issueTokens(s.ctx, s.uow.Users, s.tokens, stale, models.RoleEmployee, nil)
	s.ErrorIs(err, ErrUserNotFound)
	s.ErrorIs(s.uow.Users.Update(s.ctx, stale), gorm.ErrRecordNotFound)

	exists, err := s.users.DoesUserExist(s.ctx, e.ID, false)
	s.Require().NoError(err)
	s.False(exists)

	var reloaded models.User
	s.Require().NoError(s.db.Unscoped().First(&reloaded, e.ID).Error)
	s.True(reloaded.IsDeleted())
	s.Nil(reloaded.RefreshToken)
}

func (s *ServiceSuite) TestIssueTokens_KeepsConcurrentProfileEdit() {
	e := s.createUser("e@corp.test", models.RoleEmployee)
	stale, err := s.uow.Users.FindByID(s.ctx, e.ID)
	s.Require().NoError(err)

	_, err = s.users.UpdateUser(s.ctx, e.ID, e.ID, UpdateUserInput{FirstName: strPtr("Renamed"), Email: strPtr("renamed@corp.test")})
	s.Require().NoError(err)

	result, err := issueTokens(s.ctx, s.uow.Users, s.tokens, stale, models.RoleEmployee, nil)
	s.Require().NoError(err)

	var reloaded models.User
	s.Require().NoError(s.db.First(&reloaded, e.ID).Error)
	s.Equal("Renamed", reloaded.FirstName)
	s.Equal("renamed@corp.test", reloaded.Email)
	s.Require().NotNil(reloaded.RefreshToken)
	s.Equal(result.Tokens.RefreshToken, *reloaded.RefreshToken)
}

func (s *ServiceSuite) TestCredentialWritesIgnoreDeletedUser() {
	e := s.createUser("e@corp.test", models.RoleEmployee)
	login, err := s.users.VerifyCredentials(s.ctx, VerifyCredentialsInput{Email: e.Email, Password: testPassword})
	s.Require().NoError(err)
	s.Require().NotNil(login)

	s.Require().NoError(s.users.DeleteUser(s.ctx, e.ID))

	_, err = s.auth.RefreshTokens(s.ctx, RefreshInput{AccessToken: login.Tokens.AccessToken, RefreshToken: login.Tokens.RefreshToken})
	s.ErrorIs(err, ErrUnauthorized)

	err = s.users.UpdatePassword(s.ctx, e.ID, UpdatePasswordInput{CurrentPassword: testPassword, NewPassword: "newpass123"})
	s.ErrorIs(err, ErrUnauthorized)

	s.NoError(s.auth.RevokeRefreshToken(s.ctx, e.ID))

	var reloaded models.User
	s.Require().NoError(s.db.Unscoped().First(&reloaded, e.ID).Error)
	s.True(reloaded.IsDeleted())
	s.Equal(s.passwordHash, reloaded.PasswordHash)
}
