// Copyright 2026 The Authsys Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rbac

// -----------------------------------------------------------------------------
// Distinguished Role Names
// These two roles must always exist. Bootstrap creates them; the identity
// lifecycle triggers assign them.
// -----------------------------------------------------------------------------

const (
	// RoleDefault is assigned automatically to every newly created user.
	RoleDefault = "Default"

	// RoleAdmin is assigned automatically to superusers. Bootstrap grants
	// it every permission in the registry.
	RoleAdmin = "Admin"
)

// SystemActor identifies the automatic lifecycle triggers in the audit
// trail, as opposed to an administrator acting explicitly.
const SystemActor = "system"

// seedEntry is one catalog definition created at bootstrap.
type seedEntry struct {
	Code        string
	Description string
}

// SeedActions are the foundational operation verbs created at bootstrap.
var SeedActions = []seedEntry{
	{Code: "create", Description: "Allows creating a new item."},
	{Code: "read", Description: "Allows viewing items."},
	{Code: "update", Description: "Allows editing an existing item."},
	{Code: "delete", Description: "Allows deleting an item."},
}

// SeedResources are the foundational protected entity classes created at
// bootstrap. The rbac resource guards this system's own admin surface.
var SeedResources = []seedEntry{
	{Code: "projects", Description: "Company projects and tasks."},
	{Code: "invoices", Description: "Customer billing and invoices."},
	{Code: "users", Description: "System user accounts."},
	{Code: "rbac", Description: "Authorization catalog, permissions and roles."},
}
