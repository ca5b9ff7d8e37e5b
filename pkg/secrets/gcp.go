package secrets

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GCPStore reads and writes secrets through Google Secret Manager. Secrets
// are addressed by short name inside one project; Get always resolves the
// latest version.
type GCPStore struct {
	client  *secretmanager.Client
	project string
}

// NewGCPStore creates a Secret Manager backed store for a project.
func NewGCPStore(ctx context.Context, project string) (*GCPStore, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create secretmanager client: %w", err)
	}
	return &GCPStore{client: client, project: project}, nil
}

// Close releases the underlying client.
func (s *GCPStore) Close() error {
	return s.client.Close()
}

// Get returns the latest version of the named secret.
func (s *GCPStore) Get(ctx context.Context, name string) (string, error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.project, name),
	})
	if status.Code(err) == codes.NotFound {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	return string(resp.GetPayload().GetData()), nil
}

// Set adds a new version to the named secret, creating the secret when it
// does not exist yet.
func (s *GCPStore) Set(ctx context.Context, name, value string) error {
	parent := fmt.Sprintf("projects/%s/secrets/%s", s.project, name)

	_, err := s.client.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{Name: parent})
	if status.Code(err) == codes.NotFound {
		_, err = s.client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
			Parent:   "projects/" + s.project,
			SecretId: name,
			Secret: &secretmanagerpb.Secret{
				Replication: &secretmanagerpb.Replication{
					Replication: &secretmanagerpb.Replication_Automatic_{
						Automatic: &secretmanagerpb.Replication_Automatic{},
					},
				},
			},
		})
	}
	if err != nil {
		return fmt.Errorf("ensure secret %s: %w", name, err)
	}

	_, err = s.client.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  parent,
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	})
	if err != nil {
		return fmt.Errorf("add secret version %s: %w", name, err)
	}
	return nil
}
