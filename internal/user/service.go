package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront-be/internal/apperror"
	"storefront-be/internal/auth"
	"storefront-be/internal/logger"
	"storefront-be/internal/mailer"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

type Service interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	VerifyOTP(ctx context.Context, email, otp string) error
	ResendOTP(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (string, *User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, otp, newPassword string) error
	GetByID(ctx context.Context, id uint) (*User, error)
	ListUsers(ctx context.Context, role auth.Role) ([]User, error)
	ToggleBlock(ctx context.Context, id uint) (*User, error)
}

type service struct {
	repo   Repository
	tokens *auth.TokenManager
	mail   mailer.Sender
	now    func() time.Time
	newOTP func() (string, error)
}

func NewService(repo Repository, tokens *auth.TokenManager, mail mailer.Sender) Service {
	return &service{
		repo:   repo,
		tokens: tokens,
		mail:   mail,
		now:    time.Now,
		newOTP: utils.GenerateOTP,
	}
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Register"),
	)

	input.Name = strings.TrimSpace(input.Name)
	input.Email = utils.NormalizeEmail(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	if input.Role == "" {
		input.Role = auth.RoleShopper
	}

	switch {
	case utils.AnyBlank(input.Name, input.Email):
		return nil, apperror.Validation("name and email are required")
	case !strings.Contains(input.Email, "@"):
		return nil, apperror.Validation("invalid email")
	case !ValidPhone(input.Phone):
		return nil, apperror.Validation("please enter a valid 10-digit mobile number")
	case len(input.Password) < minPasswordLength:
		return nil, apperror.Validation("password must be at least %d characters", minPasswordLength)
	case input.Role != auth.RoleShopper && input.Role != auth.RoleSeller:
		return nil, apperror.Validation("role must be shopper or seller")
	}

	hashed, err := HashPassword(input.Password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	otp, otpHash, expiresAt, err := s.issueOTP()
	if err != nil {
		log.Error("failed to issue otp", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	u, err := s.repo.Create(ctx, &User{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Password:     hashed,
		Role:         input.Role,
		OTPHash:      &otpHash,
		OTPExpiresAt: &expiresAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailExists):
			return nil, apperror.New(apperror.KindConflict, "user already exists")
		case errors.Is(err, ErrPhoneExists):
			return nil, apperror.New(apperror.KindConflict, "phone already registered")
		}
		log.Error("failed to create user", zap.String("email", input.Email), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	if err := s.mail.SendOTP(ctx, u.Email, u.Name, otp); err != nil {
		log.Error("failed to send verification email", zap.Uint("user_id", u.ID), zap.Error(err))
		return nil, apperror.Wrap(apperror.KindGateway, "could not send verification email, request a new code", err)
	}

	log.Info("user registered",
		zap.Uint("user_id", u.ID),
		zap.String("role", string(u.Role)),
	)
	return u, nil
}

func (s *service) VerifyOTP(ctx context.Context, email, otp string) error {
	u, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u.Verified {
		return apperror.Validation("account already verified")
	}
	if !u.otpValid(otp, s.now()) {
		return apperror.Validation("invalid or expired OTP")
	}

	if err := s.repo.MarkVerified(ctx, u.ID); err != nil {
		return apperror.Internal(err)
	}

	logger.FromCtx(ctx).Info("user verified",
		zap.String("layer", "service"),
		zap.Uint("user_id", u.ID),
	)
	return nil
}

func (s *service) ResendOTP(ctx context.Context, email string) error {
	u, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u.Verified {
		return apperror.Validation("account already verified")
	}
	return s.sendFreshOTP(ctx, u)
}

func (s *service) Login(ctx context.Context, email, password string) (string, *User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Login"),
	)

	u, err := s.repo.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Info("login unknown email")
			return "", nil, apperror.New(apperror.KindUnauthenticated, "invalid email or password")
		}
		return "", nil, apperror.Internal(err)
	}

	if !CheckPasswordHash(password, u.Password) {
		log.Info("login password mismatch", zap.Uint("user_id", u.ID))
		return "", nil, apperror.New(apperror.KindUnauthenticated, "invalid email or password")
	}
	if !u.Verified {
		return "", nil, apperror.Forbidden("please verify your account")
	}
	if u.Blocked {
		return "", nil, apperror.Forbidden("account is blocked")
	}

	token, err := s.tokens.Generate(u.ID, u.Email, u.Role)
	if err != nil {
		log.Error("failed to generate jwt", zap.Uint("user_id", u.ID), zap.Error(err))
		return "", nil, apperror.Internal(err)
	}

	return token, u, nil
}

func (s *service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.sendFreshOTP(ctx, u)
}

func (s *service) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperror.Validation("password must be at least %d characters", minPasswordLength)
	}

	u, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !u.otpValid(otp, s.now()) {
		return apperror.Validation("invalid or expired OTP")
	}

	hashed, err := HashPassword(newPassword)
	if err != nil {
		return apperror.Internal(err)
	}
	if err := s.repo.UpdatePassword(ctx, u.ID, hashed); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, id uint) (*User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperror.NotFound("user")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return u, nil
}

func (s *service) ListUsers(ctx context.Context, role auth.Role) ([]User, error) {
	if role != "" && !role.Valid() {
		return nil, apperror.Validation("unknown role %q", role)
	}
	users, err := s.repo.List(ctx, role)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return users, nil
}

func (s *service) ToggleBlock(ctx context.Context, id uint) (*User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role == auth.RoleAdmin {
		return nil, apperror.Forbidden("admins cannot be blocked")
	}

	updated, err := s.repo.SetBlocked(ctx, id, !u.Blocked)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	logger.FromCtx(ctx).Info("user block toggled",
		zap.String("layer", "service"),
		zap.Uint("user_id", id),
		zap.Bool("blocked", updated.Blocked),
	)
	return updated, nil
}

func (s *service) findByEmail(ctx context.Context, email string) (*User, error) {
	u, err := s.repo.FindByEmail(ctx, utils.NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperror.NotFound("user")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return u, nil
}

func (s *service) issueOTP() (otp, otpHash string, expiresAt time.Time, err error) {
	otp, err = s.newOTP()
	if err != nil {
		return "", "", time.Time{}, err
	}
	otpHash, err = HashOTP(otp)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return otp, otpHash, s.now().Add(OTPTTL), nil
}

func (s *service) sendFreshOTP(ctx context.Context, u *User) error {
	otp, otpHash, expiresAt, err := s.issueOTP()
	if err != nil {
		return apperror.Internal(err)
	}
	if err := s.repo.SetOTP(ctx, u.ID, otpHash, expiresAt); err != nil {
		return apperror.Internal(err)
	}
	if err := s.mail.SendOTP(ctx, u.Email, u.Name, otp); err != nil {
		logger.FromCtx(ctx).Error("failed to send otp email",
			zap.String("layer", "service"),
			zap.Uint("user_id", u.ID),
			zap.Error(err),
		)
		return apperror.Wrap(apperror.KindGateway, "could not send email", err)
	}
	return nil
}
