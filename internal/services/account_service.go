package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codeschool/accounts/internal/auth"
	"github.com/codeschool/accounts/internal/cache"
	"github.com/codeschool/accounts/internal/config"
	"github.com/codeschool/accounts/internal/events"
	"github.com/codeschool/accounts/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewUser is the input of CreateUser, CreateSuperuser and Register.
type NewUser struct {
	Email    string
	Name     string
	Alias    string
	SchoolID string
	Password string
	Role     models.Role
}

// Flag overrides one of the account flags at creation time.
type Flag func(*models.User)

func WithStaff(v bool) Flag     { return func(u *models.User) { u.IsStaff = v } }
func WithSuperuser(v bool) Flag { return func(u *models.User) { u.IsSuperuser = v } }
func WithActive(v bool) Flag    { return func(u *models.User) { u.IsActive = v } }

type AccountService struct {
	db     *gorm.DB
	cfg    *config.Config
	events *events.Publisher
	cache  *cache.Helper
	now    func() time.Time
}

func NewAccountService(db *gorm.DB, cfg *config.Config, pub *events.Publisher, c *cache.Helper) *AccountService {
	if c == nil {
		c = cache.NewHelper(nil, "")
	}
	return &AccountService{db: db, cfg: cfg, events: pub, cache: c, now: time.Now}
}

// Today is the date used for derived values such as a profile's age.
func (s *AccountService) Today() time.Time { return s.now() }

// NewUserRecord builds an unsaved user. It fails when the email is blank.
func (s *AccountService) NewUserRecord(nu NewUser, flags ...Flag) (*models.User, error) {
	email := auth.NormalizeEmail(nu.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !nu.Role.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrValidation, models.ErrUnknownRole)
	}

	hash, err := auth.HashPassword(nu.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Email:    email,
		Name:     strings.TrimSpace(nu.Name),
		Alias:    strings.TrimSpace(nu.Alias),
		Role:     nu.Role,
		Password: hash,
		IsActive: true,
	}
	if id := strings.TrimSpace(nu.SchoolID); id != "" {
		u.SchoolID = &id
	}
	for _, f := range flags {
		f(u)
	}
	return u, nil
}

func (s *AccountService) CreateUser(ctx context.Context, nu NewUser, flags ...Flag) (*models.User, error) {
	flags = append([]Flag{WithStaff(false), WithSuperuser(false)}, flags...)
	u, err := s.NewUserRecord(nu, flags...)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateSuperuser always yields is_staff and is_superuser set; a flag that
// tries to clear either is rejected.
func (s *AccountService) CreateSuperuser(ctx context.Context, nu NewUser, flags ...Flag) (*models.User, error) {
	flags = append([]Flag{WithStaff(true), WithSuperuser(true)}, flags...)
	u, err := s.NewUserRecord(nu, flags...)
	if err != nil {
		return nil, err
	}
	if !u.IsStaff {
		return nil, fmt.Errorf("%w: superuser must have is_staff=true", ErrValidation)
	}
	if !u.IsSuperuser {
		return nil, fmt.Errorf("%w: superuser must have is_superuser=true", ErrValidation)
	}
	if err := s.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Save persists u. A new user is inserted together with its profile in one
// transaction: the pending profile if one was touched, a default one
// otherwise. A user with an identity only has its own row updated and must
// already be stored.
func (s *AccountService) Save(ctx context.Context, u *models.User) error {
	if !u.IsNew() {
		return s.update(ctx, u)
	}

	profile := u.PendingProfile()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkUnique(tx, u); err != nil {
			return err
		}
		if err := tx.Create(u).Error; err != nil {
			return translateUnique(err)
		}

		profile.User = u
		profile.UserID = u.ID
		if err := tx.Omit(clause.Associations).Create(profile).Error; err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return nil
	})
	if err != nil {
		// Hooks assigned identities inside the rolled back transaction.
		u.ID = uuid.Nil
		profile.ID = uuid.Nil
		profile.UserID = uuid.Nil
		return err
	}

	u.ProfileRef = models.SavedProfile{ID: profile.ID, Record: profile}
	s.invalidate(ctx)
	s.events.Emit(ctx, events.TopicUserCreated, userEvent(u))
	return nil
}

func (s *AccountService) update(ctx context.Context, u *models.User) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkUnique(tx, u); err != nil {
			return err
		}
		res := tx.Model(u).Select("*").Omit(clause.Associations).Updates(u)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return translateUnique(err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *AccountService) checkUnique(tx *gorm.DB, u *models.User) error {
	var count int64
	if err := tx.Unscoped().Model(&models.User{}).
		Where("email = ? AND id <> ?", u.Email, u.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		if err := tx.Model(&models.ExtraEmail{}).
			Where("email = ? AND user_id <> ?", u.Email, u.ID).Count(&count).Error; err != nil {
			return err
		}
	}
	if count > 0 {
		return ErrEmailTaken
	}

	if u.SchoolID != nil {
		if err := tx.Unscoped().Model(&models.User{}).
			Where("school_id = ? AND id <> ?", *u.SchoolID, u.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrSchoolIDTaken
		}
	}
	return nil
}

// Profile returns the profile of u. Unsaved users get their memoized
// placeholder; saved users get the stored row, loaded once per instance.
func (s *AccountService) Profile(ctx context.Context, u *models.User) (*models.Profile, error) {
	if u.IsNew() {
		return u.PendingProfile(), nil
	}
	if p, ok := u.CachedProfile(); ok {
		return p, nil
	}

	var p models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", u.ID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	p.User = u
	u.ProfileRef = models.SavedProfile{ID: p.ID, Record: &p}
	return &p, nil
}

// SaveProfile persists a profile whose user already exists.
func (s *AccountService) SaveProfile(ctx context.Context, p *models.Profile) error {
	return s.saveProfile(s.db.WithContext(ctx), p)
}

func (s *AccountService) saveProfile(db *gorm.DB, p *models.Profile) error {
	if p.User != nil {
		if p.User.IsNew() {
			return fmt.Errorf("%w: save the user before its profile", ErrValidation)
		}
		p.UserID = p.User.ID
	}
	if p.UserID == uuid.Nil {
		return fmt.Errorf("%w: profile is not bound to a user", ErrValidation)
	}
	if !p.Visibility.Valid() {
		return fmt.Errorf("%w: %v", ErrValidation, models.ErrUnknownVisibility)
	}

	if err := db.Omit(clause.Associations).Save(p).Error; err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// UpdateProfile applies upd to the profile of userID inside a transaction.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error) {
	var out *models.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, "id = ?", userID).Error; err != nil {
			return notFound(err)
		}
		var p models.Profile
		if err := tx.Where("user_id = ?", userID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProfileNotFound
			}
			return err
		}
		upd.Apply(&p)
		p.User = &u
		if err := s.saveProfile(tx, &p); err != nil {
			return err
		}
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Register persists a new user and its submitted profile data together.
func (s *AccountService) Register(ctx context.Context, nu NewUser, data models.ProfileUpdate) (*models.User, error) {
	if len(nu.Password) < s.cfg.MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, s.cfg.MinPasswordLength)
	}

	u, err := s.NewUserRecord(nu, WithStaff(false), WithSuperuser(false))
	if err != nil {
		return nil, err
	}
	data.Apply(u.PendingProfile())

	if err := s.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword replaces the password of userID after verifying the
// current one.
func (s *AccountService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.Password, current) {
		return ErrInvalidCredentials
	}
	return s.setPassword(ctx, u, next)
}

// SetPassword replaces the password without verifying the current one.
// Reserved for staff.
func (s *AccountService) SetPassword(ctx context.Context, userID uuid.UUID, next string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, u, next)
}

func (s *AccountService) setPassword(ctx context.Context, u *models.User, next string) error {
	if len(next) < s.cfg.MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, s.cfg.MinPasswordLength)
	}
	hash, err := auth.HashPassword(next, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(u).Update("password", hash).Error; err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	u.Password = hash
	s.events.Emit(ctx, events.TopicPasswordChanged, userEvent(u))
	return nil
}

func (s *AccountService) ChangeEmail(ctx context.Context, userID uuid.UUID, email string) error {
	return fmt.Errorf("change email: %w", ErrNotImplemented)
}

func (s *AccountService) ViewProfile(ctx context.Context, viewerID, targetID uuid.UUID) (*models.Profile, error) {
	return nil, fmt.Errorf("view profile: %w", ErrNotImplemented)
}

// AddExtraEmail registers an additional address for userID. Addresses are
// unique across primary and extra emails.
func (s *AccountService) AddExtraEmail(ctx context.Context, userID uuid.UUID, email string) (*models.ExtraEmail, error) {
	email = auth.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}

	extra := &models.ExtraEmail{UserID: userID, Email: email}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, "id = ?", userID).Error; err != nil {
			return notFound(err)
		}

		var count int64
		if err := tx.Unscoped().Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		if err := tx.Omit(clause.Associations).Create(extra).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return extra, nil
}

func (s *AccountService) ExtraEmails(ctx context.Context, userID uuid.UUID) ([]models.ExtraEmail, error) {
	var list []models.ExtraEmail
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&list).Error
	return list, err
}

func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *AccountService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", auth.NormalizeEmail(email)).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// ListFilter narrows the user directory. Zero values mean "any".
type ListFilter struct {
	Role   *models.Role
	Active *bool
	Search string
	Limit  int
	Offset int
}

func (f ListFilter) key() string {
	role, active := "any", "any"
	if f.Role != nil {
		role = fmt.Sprint(int(*f.Role))
	}
	if f.Active != nil {
		active = fmt.Sprint(*f.Active)
	}
	return fmt.Sprintf("list:%s:%s:%d:%d:%s", role, active, f.Limit, f.Offset, strings.ToLower(f.Search))
}

type ListResult struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
}

// List returns a page of the user directory, served from the cache when
// Redis is configured.
func (s *AccountService) List(ctx context.Context, f ListFilter) (*ListResult, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var res ListResult
	err := s.cache.CacheOrExecute(ctx, f.key(), &res, s.cfg.CacheTTL, func() (interface{}, error) {
		return s.list(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *AccountService) list(ctx context.Context, f ListFilter) (*ListResult, error) {
	q := s.db.WithContext(ctx).Model(&models.User{})
	if f.Role != nil {
		q = q.Where("role = ?", *f.Role)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(alias) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}

	var res ListResult
	if err := q.Count(&res.Total).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if err := q.Order("date_joined DESC").Limit(f.Limit).Offset(f.Offset).Find(&res.Users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &res, nil
}

// UserUpdate carries staff edits to an account. Nil fields are unchanged.
type UserUpdate struct {
	Name     *string
	Alias    *string
	SchoolID *string
	Role     *models.Role
	IsStaff  *bool
	IsActive *bool
}

func (s *AccountService) UpdateUser(ctx context.Context, id uuid.UUID, upd UserUpdate) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		u.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Alias != nil {
		u.Alias = strings.TrimSpace(*upd.Alias)
	}
	if upd.SchoolID != nil {
		if id := strings.TrimSpace(*upd.SchoolID); id != "" {
			u.SchoolID = &id
		} else {
			u.SchoolID = nil
		}
	}
	if upd.Role != nil {
		if !upd.Role.Valid() {
			return nil, fmt.Errorf("%w: %v", ErrValidation, models.ErrUnknownRole)
		}
		u.Role = *upd.Role
	}
	if upd.IsStaff != nil {
		u.IsStaff = *upd.IsStaff
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}

	if err := s.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Delete soft-deletes the account and removes its profile, extra emails and
// tokens. The address stays reserved.
func (s *AccountService) Delete(ctx context.Context, id uuid.UUID) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.ExtraEmail{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Profile{}).Error; err != nil {
			return err
		}
		return tx.Delete(u).Error
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.invalidate(ctx)
	s.events.Emit(ctx, events.TopicUserDeleted, userEvent(u))
	return nil
}

func (s *AccountService) invalidate(ctx context.Context) {
	_ = s.cache.InvalidatePattern(ctx, "list:*")
}

func userEvent(u *models.User) events.AccountEvent {
	return events.AccountEvent{UserID: u.ID, Email: u.Email, Role: int(u.Role)}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}

func translateUnique(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrAccountExists, err)
	}
	return err
}
