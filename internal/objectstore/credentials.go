// Package objectstore is a minimal OpenStack Swift client authenticated with
// Keystone v3 password credentials.
package objectstore

import (
	"fmt"
	"strings"

	"github.com/fyltr/walletd/internal/config"
	"github.com/fyltr/walletd/internal/logging"
)

// Credentials authenticate against Keystone and locate the object-store
// endpoint in the returned catalog.
type Credentials struct {
	AuthURL    string
	UserID     string
	Username   string
	Password   logging.Secret
	ProjectID  string
	Project    string
	DomainID   string
	DomainName string
	Region     string
}

// CredentialsFromBinding reads credentials from an object-storage service
// binding. It accepts both the id and name forms of user and project.
func CredentialsFromBinding(svc config.ServiceBinding) (Credentials, error) {
	c := Credentials{
		AuthURL:    strings.TrimRight(svc.String("auth_url"), "/"),
		UserID:     svc.String("userId"),
		Username:   svc.String("username"),
		Password:   logging.Secret(svc.String("password")),
		ProjectID:  svc.String("projectId"),
		Project:    svc.String("project"),
		DomainID:   svc.String("domainId"),
		DomainName: svc.String("domainName"),
		Region:     svc.String("region"),
	}

	var missing []string
	if c.AuthURL == "" {
		missing = append(missing, "auth_url")
	}
	if c.UserID == "" && c.Username == "" {
		missing = append(missing, "userId")
	}
	if c.Password.Empty() {
		missing = append(missing, "password")
	}
	if c.ProjectID == "" && c.Project == "" {
		missing = append(missing, "projectId")
	}
	if len(missing) > 0 {
		return Credentials{}, fmt.Errorf("service %q is missing credential fields: %s", svc.Name, strings.Join(missing, ", "))
	}
	return c, nil
}
