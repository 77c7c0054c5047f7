/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package az

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// NewClient creates a client for the account in the url with the default creds.
func NewClient(accountURL string) (*azblob.Client, error) {
	if err := ValidateAccountURL(accountURL); err != nil {
		return nil, err
	}
	// cred represents the default Oauth token used to authenticate the account in the url.
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("create azure default credential: %w", err)
	}
	client, err := azblob.NewClient(accountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create azure blob client: %w", err)
	}
	return client, nil
}

// check if url is in format
// https://<account_name>.blob.core.windows.net
func ValidateAccountURL(accountURL string) error {
	u, err := url.Parse(accountURL)
	if err != nil {
		return fmt.Errorf("parsing azure account url %q: %w", accountURL, err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("azure account url %v must use https", accountURL)
	}
	if u.Host == "" {
		return fmt.Errorf("missing service in azure account url %v", accountURL)
	} else if !strings.Contains(u.Host, ".blob.") {
		return fmt.Errorf("invalid service in azure account url %v", accountURL)
	}
	if strings.Trim(u.Path, "/") != "" {
		return fmt.Errorf("azure account url %v must not contain a container, pass it as the container", accountURL)
	}
	return nil
}

func IsNotFound(err error) bool {
	return bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.ResourceNotFound)
}
