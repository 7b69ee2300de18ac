package service

import (
	"context"

	"hydrolink-monitor/internal/config"
	"hydrolink-monitor/internal/logger"
	"hydrolink-monitor/internal/user/model"
	"hydrolink-monitor/internal/user/repository"
	appErrors "hydrolink-monitor/pkg/errors"
	"hydrolink-monitor/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService struct {
	repo *repository.UserRepository
	cfg  *config.JWTConfig
}

func NewUserService(repo *repository.UserRepository, cfg *config.JWTConfig) *UserService {
	return &UserService{repo: repo, cfg: cfg}
}

func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	email := utils.SanitizeEmail(req.Email)
	if !utils.IsValidEmail(email) {
		return nil, appErrors.ErrInvalidEmail
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, appErrors.ErrUserAlreadyExists
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    utils.SanitizeString(req.FirstName),
		LastName:     utils.SanitizeString(req.LastName),
		Phone:        utils.SanitizeString(req.Phone),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.Info("user registered", zap.String("user_id", user.ID.String()))

	return s.issueTokens(user)
}

func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	email := utils.SanitizeEmail(req.Email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return nil, appErrors.ErrInvalidCredentials
	}

	return s.issueTokens(user)
}

func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *model.UpdateProfileRequest) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = utils.SanitizeString(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = utils.SanitizeString(*req.LastName)
	}
	if req.Phone != nil {
		user.Phone = utils.SanitizeString(*req.Phone)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdatePassword reauthenticates with the current password before
// writing the new hash.
func (s *UserService) UpdatePassword(ctx context.Context, userID uuid.UUID, req *model.UpdatePasswordRequest) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return appErrors.ErrInvalidCredentials
	}
	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		return err
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash

	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}

	logger.Info("password updated", zap.String("user_id", userID.String()))
	return nil
}

func (s *UserService) ListAddresses(ctx context.Context, userID uuid.UUID) ([]model.Address, error) {
	return s.repo.ListAddresses(ctx, userID)
}

func (s *UserService) CreateAddress(ctx context.Context, userID uuid.UUID, req *model.AddressRequest) (*model.Address, error) {
	address := &model.Address{
		UserID:    userID,
		Label:     utils.SanitizeString(req.Label),
		Line1:     utils.SanitizeString(req.Line1),
		Line2:     utils.SanitizeString(req.Line2),
		City:      utils.SanitizeString(req.City),
		Region:    utils.SanitizeString(req.Region),
		Country:   utils.SanitizeString(req.Country),
		IsDefault: req.IsDefault,
	}
	if err := s.repo.CreateAddress(ctx, address); err != nil {
		return nil, err
	}
	return address, nil
}

func (s *UserService) UpdateAddress(ctx context.Context, userID, addressID uuid.UUID, req *model.AddressRequest) (*model.Address, error) {
	address, err := s.repo.GetAddress(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}

	address.Label = utils.SanitizeString(req.Label)
	address.Line1 = utils.SanitizeString(req.Line1)
	address.Line2 = utils.SanitizeString(req.Line2)
	address.City = utils.SanitizeString(req.City)
	address.Region = utils.SanitizeString(req.Region)
	address.Country = utils.SanitizeString(req.Country)
	address.IsDefault = req.IsDefault

	if err := s.repo.UpdateAddress(ctx, address); err != nil {
		return nil, err
	}
	return address, nil
}

func (s *UserService) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	return s.repo.DeleteAddress(ctx, userID, addressID)
}

func (s *UserService) issueTokens(user *model.User) (*model.AuthResponse, error) {
	pair, err := utils.GenerateTokenPair(user.ID, user.Email, s.cfg.Secret, s.cfg.ExpiryHours, s.cfg.RefreshExpiryHours)
	if err != nil {
		return nil, err
	}
	return &model.AuthResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}
