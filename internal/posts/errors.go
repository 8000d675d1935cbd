package posts

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

var (
	// ErrContentDirMissing is returned when a collection directory does not
	// exist and may not be created.
	ErrContentDirMissing = errors.New("posts: content directory missing")
	// ErrRepositoryEmpty signals a lookup against a collection with no posts.
	ErrRepositoryEmpty = errors.New("posts: repository empty")
	// ErrPostNotFound signals a slug that is not present in the collection.
	ErrPostNotFound = errors.New("posts: post not found")
	// ErrUnknownCollisionPolicy is returned by ParseCollisionPolicy.
	ErrUnknownCollisionPolicy = errors.New("posts: unknown collision policy")
)

func emptyError(collection string) error {
	return goerrors.Wrap(ErrRepositoryEmpty, goerrors.CategoryNotFound,
		fmt.Sprintf("collection %q has no posts", collection)).
		WithTextCode("POSTS_EMPTY")
}

func notFoundError(collection, slug string) error {
	return goerrors.Wrap(ErrPostNotFound, goerrors.CategoryNotFound,
		fmt.Sprintf("post %q not found in collection %q", slug, collection)).
		WithTextCode("POST_NOT_FOUND")
}

// IsNotFound reports whether err means the requested post cannot be served,
// either because the slug is unknown or the collection is empty.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPostNotFound) || errors.Is(err, ErrRepositoryEmpty)
}
