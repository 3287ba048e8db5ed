package statemirror

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/illmade-knight/go-presence/pkg/presence"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreMirror is an implementation of Mirror using Firestore, one
// document per uri. It is suitable for smaller deployments where a dedicated
// Redis instance would be overkill.
type FirestoreMirror struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreMirror creates a new FirestoreMirror.
func NewFirestoreMirror(client *firestore.Client, collectionName string) (*FirestoreMirror, error) {
	if client == nil {
		return nil, errors.New("firestore client cannot be nil")
	}
	return &FirestoreMirror{
		client:     client,
		collection: collectionName,
	}, nil
}

// Set creates or overwrites the document for a uri.
func (m *FirestoreMirror) Set(ctx context.Context, uri string, state presence.State) error {
	_, err := m.client.Collection(m.collection).Doc(uri).Set(ctx, state)
	if err != nil {
		return fmt.Errorf("failed to set state in firestore for uri %s: %w", uri, err)
	}
	return nil
}

// Fetch retrieves the document for a uri and maps it back to a State.
func (m *FirestoreMirror) Fetch(ctx context.Context, uri string) (presence.State, error) {
	docSnap, err := m.client.Collection(m.collection).Doc(uri).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return presence.State{}, fmt.Errorf("%q: %w", uri, ErrNotFound)
		}
		return presence.State{}, fmt.Errorf("firestore get failed for uri %s: %w", uri, err)
	}
	var state presence.State
	if err := docSnap.DataTo(&state); err != nil {
		return presence.State{}, fmt.Errorf("failed to unmarshal state for uri %s: %w", uri, err)
	}
	return state, nil
}

// Delete removes the document for a uri. A missing document is not an error.
func (m *FirestoreMirror) Delete(ctx context.Context, uri string) error {
	_, err := m.client.Collection(m.collection).Doc(uri).Delete(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return fmt.Errorf("firestore delete failed for uri %s: %w", uri, err)
	}
	return nil
}

// Close is a no-op as the Firestore client's lifecycle is managed externally.
func (m *FirestoreMirror) Close() error {
	return nil
}
