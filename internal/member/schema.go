package member

import (
	"context"

	"gridnet.org/internal/dispatch"
	"gridnet.org/internal/schema"
)

// Schema declares the Member service commands. Argument order is
// significant: it is the positional call order the dispatcher builds.
func Schema() *schema.Service {
	svc := schema.NewService("Member")

	svc.Objects["MemberUser"] = schema.Object{
		Description: "The user object.",
		Properties: []schema.Property{
			{Name: "user_id", Spec: schema.Spec{Type: "string", Description: "The user id."}},
			{Name: "created_at", Spec: schema.Spec{Type: "string", Format: "date-time"}},
			{Name: "user_name", Spec: schema.Spec{Type: "string", Description: "The user name."}},
			{Name: "user_email", Spec: schema.Spec{Type: "string", Description: "The user email."}},
			{Name: "groups", Spec: schema.Spec{Type: "string", Description: "The groups the user is a member of."}},
			{Name: "metadata", Spec: schema.Spec{Type: "object", Description: "The metadata for the user."}},
			{Name: "locked_at", Spec: schema.Spec{Type: "string", Format: "date-time"}},
		},
	}
	svc.Objects["MemberSession"] = schema.Object{
		Description: "The session object.",
		Properties: []schema.Property{
			{Name: "session_id", Spec: schema.Spec{Type: "string", Description: "The session id."}},
			{Name: "user_id", Spec: schema.Spec{Type: "string", Description: "The user id."}},
			{Name: "created_at", Spec: schema.Spec{Type: "string", Format: "date-time"}},
			{Name: "expires_at", Spec: schema.Spec{Type: "string", Format: "date-time"}},
			{Name: "abandon_at", Spec: schema.Spec{Type: "string", Format: "date-time"}},
			{Name: "closed_at", Spec: schema.Spec{Type: "string", Format: "date-time"}},
			{Name: "locked_at", Spec: schema.Spec{Type: "string", Format: "date-time"}},
			{Name: "metadata", Spec: schema.Spec{Type: "object", Description: "The metadata for the session."}},
			{Name: "ip_address", Spec: schema.Spec{Type: "string", Description: "The ip address of the session."}},
		},
	}
	svc.Objects["MemberApiKey"] = schema.Object{
		Description: "The apikey object.",
		Properties: []schema.Property{
			{Name: "apikey_id", Spec: schema.Spec{Type: "string", Description: "The apikey id."}},
			{Name: "user_id", Spec: schema.Spec{Type: "string", Description: "The user id."}},
			{Name: "apikey", Spec: schema.Spec{Type: "string", Description: "The apikey."}},
			{Name: "description", Spec: schema.Spec{Type: "string", Description: "The description of the apikey."}},
			{Name: "created_at", Spec: schema.Spec{Type: "string", Format: "date-time"}},
			{Name: "expires_at", Spec: schema.Spec{Type: "string", Format: "date-time"}},
			{Name: "locked_at", Spec: schema.Spec{Type: "string", Format: "date-time"}},
			{Name: "closed_at", Spec: schema.Spec{Type: "string", Format: "date-time"}},
		},
	}

	grantReturns := schema.Spec{Type: "object", Description: "The session token with the user and session objects."}

	svc.MustAdd(schema.Command{
		Name:        "NewSession",
		Description: "Authenticate with the network and retrieve a new network session and token. The new token is also returned in the Authorization header of the response.",
		Groups:      []string{},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "Strategy", Spec: schema.Spec{Type: "string", Description: "The authentication strategy to use."}},
				{Name: "Identifier", Spec: schema.Spec{Type: "string", Description: "The identifier to use for authentication."}},
				{Name: "Secret", Spec: schema.Spec{Type: "string", Description: "The secret to use for authentication."}},
			},
			Required: []string{"Strategy", "Identifier", "Secret"},
		},
		Returns: grantReturns,
	})

	svc.MustAdd(schema.Command{
		Name:        "NewNetworkToken",
		Description: "Generate a new network token for an existing session. The new token is also returned in the Authorization header of the response.",
		Groups:      []string{},
		Returns:     grantReturns,
	})

	svc.MustAdd(schema.Command{
		Name:        "LookupSession",
		Description: "Looks up a session.",
		Groups:      []string{schema.GroupNetwork},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "NetworkToken", Spec: schema.Spec{Type: "string", Description: "The network token to lookup."}},
			},
			Required: []string{"NetworkToken"},
		},
		Returns: grantReturns,
	})

	svc.MustAdd(schema.Command{
		Name:        "ListUsers",
		Description: "Lists the users on the network.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "SearchInfo", Spec: schema.Spec{Type: "object", Description: "Search criteria to use when searching for users."}},
				{Name: "PageInfo", Spec: schema.Spec{Type: "object", Description: "Specifies the page of values to return."}},
			},
		},
		Returns: schema.Spec{Type: "array", Object: "MemberUser"},
	})

	svc.MustAdd(schema.Command{
		Name:        "GetUser",
		Description: "Returns a user on the network.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "UserID", Spec: schema.Spec{Type: "string", Description: "The user id to retrieve."}},
			},
			Required: []string{"UserID"},
		},
		Returns: schema.Spec{Type: "object", Object: "MemberUser"},
	})

	svc.MustAdd(schema.Command{
		Name:        "RenameUser",
		Description: "Renames a user on the network.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "UserID", Spec: schema.Spec{Type: "string", Description: "The user id to rename."}},
				{Name: "NewName", Spec: schema.Spec{Type: "string", Description: "The new name to assign to the user."}},
			},
			Required: []string{"UserID", "NewName"},
		},
		Returns: schema.Spec{Type: "boolean", Description: "True if the rename was successful."},
	})

	svc.MustAdd(schema.Command{
		Name:        "SetUserGroups",
		Description: "Set the group membership for a user on the network.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "UserID", Spec: schema.Spec{Type: "string", Description: "The user id to set the groups for."}},
				{Name: "Groups", Spec: schema.Spec{Type: "string", Description: "The groups to set for the user."}},
			},
			Required: []string{"UserID", "Groups"},
		},
		Returns: schema.Spec{Type: "boolean", Description: "True if the groups were set successfully."},
	})

	svc.MustAdd(schema.Command{
		Name:        "SetUserMetadata",
		Description: "Sets the metadata for a user on the network.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "UserID", Spec: schema.Spec{Type: "string", Description: "The user id to set the metadata for."}},
				{Name: "Metadata", Spec: schema.Spec{Type: "object", Description: "The metadata to set."}},
			},
			Required: []string{"UserID"},
		},
		Returns: schema.Spec{Type: "boolean", Description: "True if the metadata was set successfully."},
	})

	svc.MustAdd(schema.Command{
		Name:        "LockUser",
		Description: "Locks a user (and all sessions) on the network.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "UserID", Spec: schema.Spec{Type: "string", Description: "The user id to lock."}},
				{Name: "LockSessions", Spec: schema.Spec{Type: "boolean", Description: "Whether to lock the sessions."}},
			},
			Required: []string{"UserID"},
		},
		Returns: schema.Spec{Type: "boolean", Description: "True if the lock was successful."},
	})

	svc.MustAdd(schema.Command{
		Name:        "UnlockUser",
		Description: "Unlocks a user on the network.",
		Groups:      []string{schema.GroupNetwork},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "UserID", Spec: schema.Spec{Type: "string", Description: "The user id to unlock."}},
			},
			Required: []string{"UserID"},
		},
		Returns: schema.Spec{Type: "boolean", Description: "True if the unlock was successful."},
	})

	svc.MustAdd(schema.Command{
		Name:        "ListSessions",
		Description: "Lists the sessions on the network.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "SearchInfo", Spec: schema.Spec{Type: "object", Description: "Search criteria to use when searching for sessions."}},
				{Name: "PageInfo", Spec: schema.Spec{Type: "object", Description: "Specifies the page of values to return."}},
			},
		},
		Returns: schema.Spec{Type: "array", Object: "MemberSession"},
	})

	svc.MustAdd(schema.Command{
		Name:        "GetSession",
		Description: "Returns a session on the network.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "SessionID", Spec: schema.Spec{Type: "string", Description: "The session id to retrieve."}},
			},
			Required: []string{"SessionID"},
		},
		Returns: schema.Spec{Type: "object", Object: "MemberSession"},
	})

	svc.MustAdd(schema.Command{
		Name:        "SetSessionMetadata",
		Description: "Sets the metadata for a session on the network.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "SessionID", Spec: schema.Spec{Type: "string", Description: "The session id to set the metadata for."}},
				{Name: "Metadata", Spec: schema.Spec{Type: "object", Description: "The metadata to set."}},
			},
			Required: []string{"SessionID"},
		},
		Returns: schema.Spec{Type: "boolean", Description: "True if the metadata was set successfully."},
	})

	svc.MustAdd(schema.Command{
		Name:        "LockSession",
		Description: "Locks a session on the network.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "SessionID", Spec: schema.Spec{Type: "string", Description: "The session id to lock."}},
			},
			Required: []string{"SessionID"},
		},
		Returns: schema.Spec{Type: "boolean", Description: "True if the lock was successful."},
	})

	svc.MustAdd(schema.Command{
		Name:        "UnlockSession",
		Description: "Unlocks a session on the network.",
		Groups:      []string{schema.GroupNetwork},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "SessionID", Spec: schema.Spec{Type: "string", Description: "The session id to unlock."}},
			},
			Required: []string{"SessionID"},
		},
		Returns: schema.Spec{Type: "boolean", Description: "True if the unlock was successful."},
	})

	svc.MustAdd(schema.Command{
		Name:        "CloseSession",
		Description: "Closes a session on the network.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "SessionID", Spec: schema.Spec{Type: "string", Description: "The session id to close."}},
			},
			Required: []string{"SessionID"},
		},
		Returns: schema.Spec{Type: "boolean", Description: "True if the close was successful."},
	})

	svc.MustAdd(schema.Command{
		Name:        "ReapSessions",
		Description: "Deletes abandoned sessions from the network.",
		Groups:      []string{schema.GroupNetwork},
		Returns:     schema.Spec{Type: "number", Description: "The number of sessions deleted."},
	})

	svc.MustAdd(schema.Command{
		Name:        "ListApiKeys",
		Description: "Lists the ApiKeys owned by a user.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "UserID", Spec: schema.Spec{Type: "string", Description: "The user id to list keys for."}},
			},
			Required: []string{"UserID"},
		},
		Returns: schema.Spec{Type: "array", Object: "MemberApiKey"},
	})

	svc.MustAdd(schema.Command{
		Name:        "CreateApiKey",
		Description: "Creates an ApiKey for a user.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "UserID", Spec: schema.Spec{Type: "string", Description: "The user id to create a key for."}},
				{Name: "Description", Spec: schema.Spec{Type: "string", Description: "The description to assign to the new ApiKey."}},
				{Name: "ExpirationMS", Spec: schema.Spec{Type: "number", Description: "The lifetime of the new ApiKey (in milliseconds)."}},
			},
			Required: []string{"UserID"},
		},
		Returns: schema.Spec{Type: "object", Description: "The new ApiKey with its one-time passkey."},
	})

	svc.MustAdd(schema.Command{
		Name:        "DestroyApiKey",
		Description: "Destroys an ApiKey.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "ApiKeyID", Spec: schema.Spec{Type: "string", Description: "The ApiKey to destroy."}},
			},
			Required: []string{"ApiKeyID"},
		},
		Returns: schema.Spec{Type: "boolean"},
	})

	svc.MustAdd(schema.Command{
		Name:        "GetApiKey",
		Description: "Retrieves an ApiKey.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "ApiKeyID", Spec: schema.Spec{Type: "string", Description: "The id of the ApiKey to get."}},
			},
			Required: []string{"ApiKeyID"},
		},
		Returns: schema.Spec{Type: "object", Object: "MemberApiKey"},
	})

	svc.MustAdd(schema.Command{
		Name:        "LockApiKey",
		Description: "Locks an ApiKey on the network.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "ApiKeyID", Spec: schema.Spec{Type: "string", Description: "The ApiKey id to lock."}},
			},
			Required: []string{"ApiKeyID"},
		},
		Returns: schema.Spec{Type: "boolean", Description: "True if the lock was successful."},
	})

	svc.MustAdd(schema.Command{
		Name:        "UnlockApiKey",
		Description: "Unlocks an ApiKey on the network.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "ApiKeyID", Spec: schema.Spec{Type: "string", Description: "The ApiKey id to unlock."}},
			},
			Required: []string{"ApiKeyID"},
		},
		Returns: schema.Spec{Type: "boolean", Description: "True if the unlock was successful."},
	})

	svc.MustAdd(schema.Command{
		Name:        "GetMySession",
		Description: "Gets this session.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService, schema.GroupUser},
		Returns:     grantReturns,
	})

	svc.MustAdd(schema.Command{
		Name:        "ListMyApiKeys",
		Description: "Lists the ApiKeys owned by the current user.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService, schema.GroupUser},
		Returns:     schema.Spec{Type: "array", Object: "MemberApiKey"},
	})

	svc.MustAdd(schema.Command{
		Name:        "CreateMyApiKey",
		Description: "Creates an ApiKey for the current user.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService, schema.GroupUser},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "Description", Spec: schema.Spec{Type: "string", Description: "The description to assign to the new ApiKey."}},
				{Name: "ExpirationMS", Spec: schema.Spec{Type: "number", Description: "The lifetime of the new ApiKey (in milliseconds)."}},
			},
		},
		Returns: schema.Spec{Type: "object", Description: "The new ApiKey with its one-time passkey."},
	})

	svc.MustAdd(schema.Command{
		Name:        "DestroyMyApiKey",
		Description: "Destroys an ApiKey owned by the current user.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService, schema.GroupUser},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "ApiKeyID", Spec: schema.Spec{Type: "string", Description: "The ApiKey to destroy."}},
			},
			Required: []string{"ApiKeyID"},
		},
		Returns: schema.Spec{Type: "boolean"},
	})

	svc.MustAdd(schema.Command{
		Name:        "GetMyApiKey",
		Description: "Retrieves an ApiKey owned by the current user.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService, schema.GroupUser},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "ApiKeyID", Spec: schema.Spec{Type: "string", Description: "The id of the ApiKey to get."}},
			},
			Required: []string{"ApiKeyID"},
		},
		Returns: schema.Spec{Type: "object", Object: "MemberApiKey"},
	})

	svc.MustAdd(schema.Command{
		Name:        "LockMyApiKey",
		Description: "Locks an ApiKey owned by the current user.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService, schema.GroupUser},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "ApiKeyID", Spec: schema.Spec{Type: "string", Description: "The ApiKey id to lock."}},
			},
			Required: []string{"ApiKeyID"},
		},
		Returns: schema.Spec{Type: "boolean", Description: "True if the lock was successful."},
	})

	svc.MustAdd(schema.Command{
		Name:        "UnlockMyApiKey",
		Description: "Unlocks an ApiKey owned by the current user.",
		Groups:      []string{schema.GroupNetwork, schema.GroupService, schema.GroupUser},
		Arguments: schema.Arguments{
			Properties: []schema.Property{
				{Name: "ApiKeyID", Spec: schema.Spec{Type: "string", Description: "The ApiKey id to unlock."}},
			},
			Required: []string{"ApiKeyID"},
		},
		Returns: schema.Spec{Type: "boolean", Description: "True if the unlock was successful."},
	})

	return svc
}

// Handlers builds the dispatch table binding each schema command to the
// service method that implements it.
func (s *Service) Handlers() map[string]dispatch.Handler {
	return map[string]dispatch.Handler{
		"NewSession": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.NewSession(ctx, argString(args, 0), argString(args, 1), argString(args, 2), actx)
		},
		"NewNetworkToken": func(ctx context.Context, _ []any, actx *dispatch.ApiContext) (any, error) {
			return s.NewNetworkToken(ctx, actx)
		},
		"LookupSession": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.LookupSession(ctx, argString(args, 0), actx)
		},
		"ListUsers": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.ListUsers(ctx, userSearchArg(args, 0), pageArg(args, 1), actx)
		},
		"GetUser": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.GetUser(ctx, argString(args, 0), actx)
		},
		"RenameUser": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.RenameUser(ctx, argString(args, 0), argString(args, 1), actx)
		},
		"SetUserGroups": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.SetUserGroups(ctx, argString(args, 0), argString(args, 1), actx)
		},
		"SetUserMetadata": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.SetUserMetadata(ctx, argString(args, 0), argObject(args, 1), actx)
		},
		"LockUser": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.LockUser(ctx, argString(args, 0), argBool(args, 1), actx)
		},
		"UnlockUser": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.UnlockUser(ctx, argString(args, 0), actx)
		},
		"ListSessions": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.ListSessions(ctx, sessionSearchArg(args, 0), pageArg(args, 1), actx)
		},
		"GetSession": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.GetSession(ctx, argString(args, 0), actx)
		},
		"SetSessionMetadata": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.SetSessionMetadata(ctx, argString(args, 0), argObject(args, 1), actx)
		},
		"LockSession": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.LockSession(ctx, argString(args, 0), actx)
		},
		"UnlockSession": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.UnlockSession(ctx, argString(args, 0), actx)
		},
		"CloseSession": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.CloseSession(ctx, argString(args, 0), actx)
		},
		"ReapSessions": func(ctx context.Context, _ []any, actx *dispatch.ApiContext) (any, error) {
			return s.ReapSessions(ctx, actx)
		},
		"ListApiKeys": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.ListApiKeys(ctx, argString(args, 0), actx)
		},
		"CreateApiKey": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.CreateApiKey(ctx, argString(args, 0), argString(args, 1), argInt64(args, 2), actx)
		},
		"DestroyApiKey": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.DestroyApiKey(ctx, argString(args, 0), actx)
		},
		"GetApiKey": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.GetApiKey(ctx, argString(args, 0), actx)
		},
		"LockApiKey": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.LockApiKey(ctx, argString(args, 0), actx)
		},
		"UnlockApiKey": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.UnlockApiKey(ctx, argString(args, 0), actx)
		},
		"GetMySession": func(ctx context.Context, _ []any, actx *dispatch.ApiContext) (any, error) {
			return s.GetMySession(ctx, actx)
		},
		"ListMyApiKeys": func(ctx context.Context, _ []any, actx *dispatch.ApiContext) (any, error) {
			return s.ListMyApiKeys(ctx, actx)
		},
		"CreateMyApiKey": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.CreateMyApiKey(ctx, argString(args, 0), argInt64(args, 1), actx)
		},
		"DestroyMyApiKey": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.DestroyMyApiKey(ctx, argString(args, 0), actx)
		},
		"GetMyApiKey": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.GetMyApiKey(ctx, argString(args, 0), actx)
		},
		"LockMyApiKey": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.LockMyApiKey(ctx, argString(args, 0), actx)
		},
		"UnlockMyApiKey": func(ctx context.Context, args []any, actx *dispatch.ApiContext) (any, error) {
			return s.UnlockMyApiKey(ctx, argString(args, 0), actx)
		},
	}
}

// Argument readers. Dispatched arguments are positional, JSON-decoded
// values; absent or mistyped values read as zero.

func argString(args []any, i int) string {
	if i < len(args) {
		if s, ok := args[i].(string); ok {
			return s
		}
	}
	return ""
}

func argBool(args []any, i int) bool {
	if i < len(args) {
		if b, ok := args[i].(bool); ok {
			return b
		}
	}
	return false
}

func argInt64(args []any, i int) int64 {
	if i >= len(args) {
		return 0
	}
	switch v := args[i].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func argObject(args []any, i int) map[string]any {
	if i < len(args) {
		if m, ok := args[i].(map[string]any); ok {
			return m
		}
	}
	return nil
}

func userSearchArg(args []any, i int) UserSearch {
	m := argObject(args, i)
	return UserSearch{
		UserName:  stringField(m, "user_name"),
		UserEmail: stringField(m, "user_email"),
	}
}

func sessionSearchArg(args []any, i int) SessionSearch {
	m := argObject(args, i)
	return SessionSearch{
		UserID:        stringField(m, "user_id"),
		IncludeClosed: boolField(m, "include_closed"),
	}
}

func pageArg(args []any, i int) Page {
	m := argObject(args, i)
	return Page{
		Limit:     intField(m, "limit"),
		Offset:    intField(m, "offset"),
		CountOnly: boolField(m, "count_only"),
	}
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func boolField(m map[string]any, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
