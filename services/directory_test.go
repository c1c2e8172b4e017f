package services

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/anjiri1684/scholarlink/cache"
	"github.com/anjiri1684/scholarlink/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	u, err := h.Directory.Register(ctx, RegisterInput{Email: "  Sam@Example.com ", Username: " SamS ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", u.Email)
	assert.Equal(t, "SamS", u.Username)
	assert.Equal(t, models.RoleLearner, u.Role)
	assert.False(t, u.ProfileComplete)
	assert.Empty(t, u.Subjects)
	assert.NotEqual(t, "secret123", u.Password)
}

func TestRegisterDuplicates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "sam@example.com", "sam")

	_, err := h.Directory.Register(ctx, RegisterInput{Email: "SAM@EXAMPLE.COM", Username: "other", Password: "secret123"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = h.Directory.Register(ctx, RegisterInput{Email: "new@example.com", Username: "SAM", Password: "secret123"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	users, err := h.Directory.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"bad email", RegisterInput{Email: "nope", Username: "sam", Password: "secret123"}, "email"},
		{"short username", RegisterInput{Email: "a@b.com", Username: "s", Password: "secret123"}, "username"},
		{"missing password", RegisterInput{Email: "a@b.com", Username: "sam"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Directory.Register(context.Background(), tt.in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "sam@example.com", "SamS")

	got, err := h.Directory.Authenticate(ctx, "SAM@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = h.Directory.Authenticate(ctx, "sams", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = h.Directory.Authenticate(ctx, "sam@example.com", "Secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = h.Directory.Authenticate(ctx, "ghost", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = h.Directory.Authenticate(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCompleteProfileTutorRules(t *testing.T) {
	h := newHarness(t)
	u := h.register(t, "t@example.com", "tutor")
	rate, zero, negative := 50.0, 0.0, -1
	years := 2

	tests := []struct {
		name  string
		in    ProfileInput
		field string
	}{
		{"missing first name", ProfileInput{LastName: "T", Role: models.RoleLearner}, "first_name"},
		{"blank last name", ProfileInput{FirstName: "T", LastName: "   ", Role: models.RoleLearner}, "last_name"},
		{"unknown role", ProfileInput{FirstName: "T", LastName: "T", Role: "admin"}, "role"},
		{"no subjects", ProfileInput{FirstName: "T", LastName: "T", Role: models.RoleTutor, Subjects: []string{" "}, HourlyRate: &rate, YearsExperience: &years}, "subjects"},
		{"no rate", ProfileInput{FirstName: "T", LastName: "T", Role: models.RoleTutor, Subjects: []string{"Art"}, YearsExperience: &years}, "hourly_rate"},
		{"zero rate", ProfileInput{FirstName: "T", LastName: "T", Role: models.RoleTutor, Subjects: []string{"Art"}, HourlyRate: &zero, YearsExperience: &years}, "hourly_rate"},
		{"no experience", ProfileInput{FirstName: "T", LastName: "T", Role: models.RoleTutor, Subjects: []string{"Art"}, HourlyRate: &rate}, "years_experience"},
		{"negative experience", ProfileInput{FirstName: "T", LastName: "T", Role: models.RoleTutor, Subjects: []string{"Art"}, HourlyRate: &rate, YearsExperience: &negative}, "years_experience"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Directory.CompleteProfile(context.Background(), u.ID, tt.in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	stored, err := h.Directory.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.False(t, stored.ProfileComplete)
}

func TestCompleteProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "t@example.com", "tutor")
	rate, years := 45.0, 0

	got, err := h.Directory.CompleteProfile(ctx, u.ID, ProfileInput{
		FirstName:       " Ada ",
		LastName:        "Lovelace",
		Bio:             " Loves numbers ",
		Role:            models.RoleTutor,
		Subjects:        []string{"Mathematics", " ", "Mathematics", " Programming"},
		HourlyRate:      &rate,
		YearsExperience: &years,
	})
	require.NoError(t, err)
	assert.True(t, got.ProfileComplete)
	assert.Equal(t, "Ada Lovelace", got.FullName())
	assert.Equal(t, "Loves numbers", got.Bio)
	assert.Equal(t, []string{"Mathematics", "Mathematics", "Programming"}, []string(got.Subjects))

	// A tutor may become a learner; rate and experience are dropped.
	got, err = h.Directory.CompleteProfile(ctx, u.ID, ProfileInput{
		FirstName: "Ada", LastName: "Lovelace", Role: models.RoleLearner,
		HourlyRate: &rate, YearsExperience: &years,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleLearner, got.Role)
	assert.Nil(t, got.HourlyRate)
	assert.Nil(t, got.YearsExperience)

	_, err = h.Directory.CompleteProfile(ctx, uuid.New(), ProfileInput{FirstName: "A", LastName: "B", Role: models.RoleLearner})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTutors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.tutor(t, "one@example.com", "one", 30, "Art")
	h.student(t, "s@example.com", "student")
	second := h.tutor(t, "two@example.com", "two", 40, "Mathematics", "Art")

	incomplete := h.register(t, "three@example.com", "three")
	incomplete.Role = models.RoleTutor
	require.NoError(t, h.store.Users().Update(ctx, incomplete))

	complete, err := h.Directory.ListTutors(ctx, true)
	require.NoError(t, err)
	require.Len(t, complete, 2)
	assert.Equal(t, first.ID, complete[0].ID)
	assert.Equal(t, second.ID, complete[1].ID)

	all, err := h.Directory.ListTutors(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	maths, err := h.Directory.TutorsBySubject(ctx, "mathematics")
	require.NoError(t, err)
	require.Len(t, maths, 1)
	assert.Equal(t, second.ID, maths[0].ID)

	catalog, err := h.Directory.SubjectCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, []SubjectCount{
		{Subject: "Mathematics", Tutors: 1},
		{Subject: "Programming", Tutors: 0},
		{Subject: "Art", Tutors: 2},
	}, catalog)

	stats, err := h.Directory.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, DirectoryStats{TotalUsers: 4, Tutors: 3, Learners: 1}, stats)
}

func TestListTutorsCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rc, err := cache.NewRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)

	h := newHarness(t, withCache(rc))
	ctx := context.Background()
	h.tutor(t, "one@example.com", "one", 30, "Art")

	tutors, err := h.Directory.ListTutors(ctx, true)
	require.NoError(t, err)
	require.Len(t, tutors, 1)
	assert.True(t, mr.Exists(directoryCachePrefix+"tutors:complete"))

	cached, err := h.Directory.ListTutors(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, tutors[0].ID, cached[0].ID)
	assert.Empty(t, cached[0].Password)

	h.tutor(t, "two@example.com", "two", 40, "Art")
	assert.False(t, mr.Exists(directoryCachePrefix+"tutors:complete"))

	tutors, err = h.Directory.ListTutors(ctx, true)
	require.NoError(t, err)
	assert.Len(t, tutors, 2)
}

func TestDeleteUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "gone@example.com", "gone")

	require.NoError(t, h.Directory.DeleteUser(ctx, u.ID))
	_, err := h.Directory.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, h.Directory.DeleteUser(ctx, u.ID), ErrNotFound)

	_, err = h.Directory.Authenticate(ctx, "gone@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// The anonymized record frees the email and username.
	h.register(t, "gone@example.com", "gone")
}
