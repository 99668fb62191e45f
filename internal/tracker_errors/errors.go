package tracker_errors

import (
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
)

const (
	CodeUniqueConstraint     = "23505"
	CodeForeignKeyConstraint = "23503"
)

var (
	ErrInternal            = errors.New("internal service error. please try again later")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnAuthorized        = errors.New("user not allowed to perform this action")
	ErrNotFound            = errors.New("entity not found")
	ErrHttpResponse        = errors.New("error occurred with http response")
	ErrEntityAlreadyExist  = errors.New("entity with given key already exist")
	ErrEmailServiceStopped = errors.New("email service is stopped currently")

	// verification and leaderboard outcomes
	ErrNotConfigured             = errors.New("judge username is not linked to this account")
	ErrDuplicateSubmission       = errors.New("submission already verified for this problem")
	ErrNoValidSubmission         = errors.New("no accepted submission found after the contest started. solve it first, then sync from the judge")
	ErrVerificationUnavailable   = errors.New("judge is unavailable right now. please try again later")
	ErrAggregationPartialFailure = errors.New("stats could not be fetched for some members")
	ErrCooldownActive            = errors.New("leaderboard was refreshed recently")
	ErrContestEnded              = errors.New("contest has ended")
	ErrContestNotStarted         = errors.New("contest has not started yet")
)

func HandleDBErrors(
	err error,
	errMsgs map[string]map[string]string,
	contextMessage string,
) error {
	if errors.Is(err, pgx.ErrNoRows) {
		log.Error(fmt.Sprintf("%s, %v", contextMessage, ErrNotFound))
		return fmt.Errorf("%w, %s", ErrNotFound, contextMessage)
	}

	// assume its an internal error first
	wrapped := fmt.Errorf(
		"%w, %s, %w",
		ErrInternal,
		contextMessage,
		err,
	)

	// check if its a pg error
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		log.Error(wrapped)
		return wrapped
	}

	if errMsgs == nil {
		log.Warnf("got null errMsgs")
		log.Error(wrapped)
		return wrapped
	}

	switch pgErr.Code {
	case CodeForeignKeyConstraint:
		msgForeignKey, ok := errMsgs[CodeForeignKeyConstraint]
		if !ok {
			log.Warnf("no msg map found for foreign key constraint.")
			return fmt.Errorf("%w, %s", ErrInvalidRequest, pgErr.Detail)
		}
		return handleConstraintError(pgErr, msgForeignKey, ErrInvalidRequest)
	case CodeUniqueConstraint:
		msgUniqueConstraint, ok := errMsgs[CodeUniqueConstraint]
		if !ok {
			log.Warnf("no msg map found for unique key constraint.")
			return fmt.Errorf("%w, %s", ErrEntityAlreadyExist, pgErr.Detail)
		}
		return handleConstraintError(pgErr, msgUniqueConstraint, ErrEntityAlreadyExist)
	}

	// unknown error
	log.Error(wrapped)
	return wrapped
}

func handleConstraintError(pgErr *pgconn.PgError, msgs map[string]string, kind error) error {
	msg, ok := msgs[pgErr.ConstraintName]
	if !ok {
		log.Warnf("unknown constraint violation %s on table %s", pgErr.ConstraintName, pgErr.TableName)
		msg = pgErr.Detail
	}
	err := fmt.Errorf("%w, %s", kind, msg)
	log.Error(err)
	return err
}

// handles errors while talking to other processes (judge api, redis, smtp)
func WrapIPCError(err error) error {
	var opError *net.OpError
	if errors.As(err, &opError) {
		return fmt.Errorf(
			"%w, \"%s\" error occurred during \"%s\" operation, network: %s, dest: %s",
			ErrInternal,
			opError.Error(),
			opError.Op,
			opError.Net,
			opError.Addr,
		)
	}

	// unknown error
	return fmt.Errorf("%w, %w", ErrInternal, err)
}
