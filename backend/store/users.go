package store

import (
	"context"
	"errors"
	"strings"

	"radbank/backend/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrEmailTaken is returned when registering an address that already exists.
var ErrEmailTaken = errors.New("email already registered")

type UserStore struct {
	DB *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{DB: db}
}

// NewUserInput holds what is needed to create an account.
type NewUserInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	JobTitle  string `json:"job_title"`
	Product   string `json:"product"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserStore) Create(ctx context.Context, in NewUserInput) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, persistErr("hash password", err)
	}

	user := &models.User{
		Email:        NormalizeEmail(in.Email),
		PasswordHash: string(hashedPassword),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		JobTitle:     in.JobTitle,
		Product:      in.Product,
		Role:         models.RoleUser,
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return nil, queryErr("users", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, persistErr("create user", err)
	}
	return user, nil
}

// Authenticate returns the user when password matches the stored hash.
func (s *UserStore) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.ByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *UserStore) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, queryErr("user", err)
	}
	return &user, nil
}

func (s *UserStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, queryErr("user", err)
	}
	return &user, nil
}

// List returns users oldest first. A non-empty search keeps those whose
// email, first name, last name or job title contains it, ignoring case.
func (s *UserStore) List(ctx context.Context, search string) ([]models.User, error) {
	query := s.DB.WithContext(ctx).Order("created_at ASC")
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(job_title) LIKE ?",
			like, like, like, like,
		)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, queryErr("users", err)
	}
	return users, nil
}

// IsAdmin reads the role from the database rather than from a token.
func (s *UserStore) IsAdmin(ctx context.Context, id uuid.UUID) (bool, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}

func (s *UserStore) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return persistErr("hash password", err)
	}
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password_hash", string(hashedPassword))
	if res.Error != nil {
		return persistErr("set password", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserStore) SetRole(ctx context.Context, email string, role models.Role) error {
	if !role.Valid() {
		return ValidationErrors{{Field: "role", Message: "unknown role " + string(role)}}
	}
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", NormalizeEmail(email)).Update("role", role)
	if res.Error != nil {
		return persistErr("set role", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user with their attempts, answered questions and progress.
func (s *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempts := tx.Model(&models.QuizAttempt{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("quiz_id IN (?)", attempts).Delete(&models.QuizQuestion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.QuizAttempt{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.UserProgress{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return persistErr("delete user", err)
	}
	return nil
}
