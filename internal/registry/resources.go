package registry

// Default returns the registry with every resource type the admin surface
// manages. Table names, allow-lists, and cleanup rules live here and
// nowhere else; the statement builder and analyzer consume them blindly.
func Default() *Registry {
	return New(
		restaurantsDescriptor(),
		dishesDescriptor(),
		usersDescriptor(),
		citiesDescriptor(),
		neighborhoodsDescriptor(),
		hashtagsDescriptor(),
		listsDescriptor(),
		listItemsDescriptor(),
		restaurantChainsDescriptor(),
		submissionsDescriptor(),
	)
}

func restaurantsDescriptor() Descriptor {
	writable := []string{
		"name", "address", "zip", "phone", "website", "description",
		"price_range", "latitude", "longitude",
		"city_id", "neighborhood_id", "chain_id", "google_place_id",
	}
	return Descriptor{
		Type:         "restaurants",
		Table:        "restaurants",
		CreateFields: writable,
		UpdateFields: writable,
		Fields: []FieldSpec{
			{Name: "name", Kind: FieldText, Required: true},
			{Name: "address", Kind: FieldText},
			{Name: "zip", Kind: FieldText},
			{Name: "phone", Kind: FieldPhone},
			{Name: "website", Kind: FieldURL},
			{Name: "description", Kind: FieldText, LongText: true},
			{Name: "price_range", Kind: FieldEnum, Enum: []string{"$", "$$", "$$$", "$$$$"}},
			{Name: "latitude", Kind: FieldNumeric},
			{Name: "longitude", Kind: FieldNumeric},
			{Name: "city_id", Kind: FieldID, Required: true},
			{Name: "neighborhood_id", Kind: FieldID},
			{Name: "chain_id", Kind: FieldID},
			{Name: "google_place_id", Kind: FieldText},
		},
		CleanupRules: map[string][]CleanupRule{
			"name":        {{Kind: CleanupTrim}, {Kind: CleanupTitleCase}},
			"address":     {{Kind: CleanupTrim}},
			"description": {{Kind: CleanupTrim}, {Kind: CleanupTruncate, MaxLen: 500}},
			"phone":       {{Kind: CleanupFormatPhone}},
			"website":     {{Kind: CleanupEnsureHTTPS}},
		},
		Formatter: formatRestaurant,
	}
}

func dishesDescriptor() Descriptor {
	writable := []string{"name", "restaurant_id", "price", "description", "category"}
	return Descriptor{
		Type:         "dishes",
		Table:        "dishes",
		CreateFields: writable,
		UpdateFields: writable,
		Fields: []FieldSpec{
			{Name: "name", Kind: FieldText, Required: true},
			{Name: "restaurant_id", Kind: FieldID, Required: true},
			{Name: "price", Kind: FieldNumeric},
			{Name: "description", Kind: FieldText, LongText: true},
			{Name: "category", Kind: FieldText},
		},
		CleanupRules: map[string][]CleanupRule{
			"name":        {{Kind: CleanupTrim}, {Kind: CleanupTitleCase}},
			"description": {{Kind: CleanupTrim}, {Kind: CleanupTruncate, MaxLen: 500}},
		},
		Formatter: formatDish,
	}
}

func usersDescriptor() Descriptor {
	return Descriptor{
		Type:         "users",
		Table:        "users",
		CreateFields: []string{"username", "email", "display_name", "bio", "avatar_url", "account_type"},
		UpdateFields: []string{"email", "display_name", "bio", "avatar_url", "account_type"},
		Fields: []FieldSpec{
			{Name: "username", Kind: FieldText, Required: true},
			{Name: "email", Kind: FieldEmail, Required: true},
			{Name: "display_name", Kind: FieldText},
			{Name: "bio", Kind: FieldText, LongText: true},
			{Name: "avatar_url", Kind: FieldURL},
			{Name: "account_type", Kind: FieldEnum, Enum: []string{"user", "editor", "admin"}},
		},
		CleanupRules: map[string][]CleanupRule{
			"username":   {{Kind: CleanupTrim}, {Kind: CleanupLowercase}},
			"email":      {{Kind: CleanupTrim}, {Kind: CleanupLowercase}},
			"avatar_url": {{Kind: CleanupEnsureHTTPS}},
		},
		// Admin accounts are managed by hand; keep the analyzer off them.
		AnalyzeRow: func(row map[string]any) bool {
			acct, _ := row["account_type"].(string)
			return acct != "admin"
		},
	}
}

func citiesDescriptor() Descriptor {
	writable := []string{"name", "state", "country", "latitude", "longitude"}
	return Descriptor{
		Type:         "cities",
		Table:        "cities",
		CreateFields: writable,
		UpdateFields: writable,
		Fields: []FieldSpec{
			{Name: "name", Kind: FieldText, Required: true},
			{Name: "state", Kind: FieldText},
			{Name: "country", Kind: FieldText},
			{Name: "latitude", Kind: FieldNumeric},
			{Name: "longitude", Kind: FieldNumeric},
		},
		CleanupRules: map[string][]CleanupRule{
			"name":  {{Kind: CleanupTrim}, {Kind: CleanupTitleCase}},
			"state": {{Kind: CleanupTrim}},
		},
	}
}

func neighborhoodsDescriptor() Descriptor {
	writable := []string{"name", "city_id", "zip_codes", "description"}
	return Descriptor{
		Type:         "neighborhoods",
		Table:        "neighborhoods",
		CreateFields: writable,
		UpdateFields: writable,
		Fields: []FieldSpec{
			{Name: "name", Kind: FieldText, Required: true},
			{Name: "city_id", Kind: FieldID, Required: true},
			{Name: "zip_codes", Kind: FieldText, LongText: true},
			{Name: "description", Kind: FieldText, LongText: true},
		},
		CleanupRules: map[string][]CleanupRule{
			"name":        {{Kind: CleanupTrim}, {Kind: CleanupTitleCase}},
			"description": {{Kind: CleanupTrim}, {Kind: CleanupTruncate, MaxLen: 500}},
		},
	}
}

func hashtagsDescriptor() Descriptor {
	writable := []string{"name", "description"}
	return Descriptor{
		Type:         "hashtags",
		Table:        "hashtags",
		CreateFields: writable,
		UpdateFields: writable,
		Fields: []FieldSpec{
			{Name: "name", Kind: FieldText, Required: true},
			{Name: "description", Kind: FieldText},
		},
		CleanupRules: map[string][]CleanupRule{
			"name":        {{Kind: CleanupTrim}, {Kind: CleanupLowercase}},
			"description": {{Kind: CleanupTrim}, {Kind: CleanupTruncate, MaxLen: 500}},
		},
	}
}

func listsDescriptor() Descriptor {
	writable := []string{"name", "user_id", "description"}
	return Descriptor{
		Type:         "lists",
		Table:        "lists",
		CreateFields: writable,
		UpdateFields: writable,
		Fields: []FieldSpec{
			{Name: "name", Kind: FieldText, Required: true},
			{Name: "user_id", Kind: FieldID, Required: true},
			{Name: "description", Kind: FieldText, LongText: true},
		},
		// List names are user content, not admin data; no cleanup rules.
	}
}

func listItemsDescriptor() Descriptor {
	writable := []string{"list_id", "dish_id", "restaurant_id", "note", "position"}
	return Descriptor{
		Type:         "list_items",
		Table:        "list_items",
		CreateFields: writable,
		UpdateFields: writable,
		Fields: []FieldSpec{
			{Name: "list_id", Kind: FieldID, Required: true},
			{Name: "dish_id", Kind: FieldID},
			{Name: "restaurant_id", Kind: FieldID},
			{Name: "note", Kind: FieldText, LongText: true},
			{Name: "position", Kind: FieldNumeric},
		},
		CleanupRules: map[string][]CleanupRule{
			"note": {{Kind: CleanupTrim}, {Kind: CleanupTruncate, MaxLen: 500}},
		},
	}
}

func restaurantChainsDescriptor() Descriptor {
	writable := []string{"name", "website", "description"}
	return Descriptor{
		Type:         "restaurant_chains",
		Table:        "restaurant_chains",
		CreateFields: writable,
		UpdateFields: writable,
		Fields: []FieldSpec{
			{Name: "name", Kind: FieldText, Required: true},
			{Name: "website", Kind: FieldURL},
			{Name: "description", Kind: FieldText, LongText: true},
		},
		CleanupRules: map[string][]CleanupRule{
			"name":        {{Kind: CleanupTrim}, {Kind: CleanupTitleCase}},
			"website":     {{Kind: CleanupEnsureHTTPS}},
			"description": {{Kind: CleanupTrim}, {Kind: CleanupTruncate, MaxLen: 500}},
		},
	}
}

func submissionsDescriptor() Descriptor {
	return Descriptor{
		Type:         "submissions",
		Table:        "submissions",
		CreateFields: []string{"item_type", "item_data", "status", "submitted_by"},
		UpdateFields: []string{"status", "reviewed_by", "reviewed_at", "review_reason"},
		Fields: []FieldSpec{
			{Name: "item_type", Kind: FieldText, Required: true},
			{Name: "item_data", Kind: FieldJSON, Required: true, LongText: true},
			{Name: "status", Kind: FieldEnum, Enum: []string{"pending", "needs_review", "approved", "rejected"}},
			{Name: "submitted_by", Kind: FieldID},
			{Name: "reviewed_by", Kind: FieldID},
			{Name: "reviewed_at", Kind: FieldText},
			{Name: "review_reason", Kind: FieldText, LongText: true},
		},
		Formatter: formatSubmission,
	}
}
