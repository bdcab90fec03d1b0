package store

import (
	"encoding/json"

	"framez-backend/internal/models"
)

// ProfileFields flattens a profile into its stored shape.
func ProfileFields(p *models.Profile) Fields {
	return Fields{
		"uid":         p.UID,
		"email":       p.Email,
		"displayName": p.DisplayName,
		"photoURL":    p.PhotoURL,
		"createdAt":   EncodeTime(p.CreatedAt),
		"bio":         p.Bio,
		"postsCount":  p.PostsCount,
	}
}

// ProfileFromFields rebuilds a profile from its stored shape.
func ProfileFromFields(f Fields) *models.Profile {
	return &models.Profile{
		UID:         asString(f["uid"]),
		Email:       asString(f["email"]),
		DisplayName: asString(f["displayName"]),
		PhotoURL:    asString(f["photoURL"]),
		CreatedAt:   DecodeTime(asString(f["createdAt"])),
		Bio:         asString(f["bio"]),
		PostsCount:  asInt64(f["postsCount"]),
	}
}

// PostFields flattens a post into its stored shape. The document id is
// store-assigned and not part of the fields.
func PostFields(p *models.Post) Fields {
	likedBy := p.LikedBy
	if likedBy == nil {
		likedBy = []string{}
	}
	return Fields{
		"userId":          p.UserID,
		"userDisplayName": p.UserDisplayName,
		"userPhotoURL":    p.UserPhotoURL,
		"content":         p.Content,
		"imageUrl":        p.ImageURL,
		"createdAt":       EncodeTime(p.CreatedAt),
		"likes":           p.Likes,
		"likedBy":         likedBy,
	}
}

// PostFromDocument rebuilds a post from a stored document.
func PostFromDocument(d Document) *models.Post {
	return &models.Post{
		ID:              d.ID,
		UserID:          asString(d.Fields["userId"]),
		UserDisplayName: asString(d.Fields["userDisplayName"]),
		UserPhotoURL:    asString(d.Fields["userPhotoURL"]),
		Content:         asString(d.Fields["content"]),
		ImageURL:        asString(d.Fields["imageUrl"]),
		CreatedAt:       DecodeTime(asString(d.Fields["createdAt"])),
		Likes:           asInt64(d.Fields["likes"]),
		LikedBy:         asStrings(d.Fields["likedBy"]),
	}
}

// DeviceFields flattens a device registration into its stored shape.
func DeviceFields(d *models.Device) Fields {
	return Fields{
		"userId":    d.UserID,
		"token":     d.Token,
		"createdAt": EncodeTime(d.CreatedAt),
	}
}

// DeviceFromDocument rebuilds a device registration.
func DeviceFromDocument(doc Document) *models.Device {
	return &models.Device{
		ID:        doc.ID,
		UserID:    asString(doc.Fields["userId"]),
		Token:     asString(doc.Fields["token"]),
		CreatedAt: DecodeTime(asString(doc.Fields["createdAt"])),
	}
}

// Field values arrive either as the Go values the codec stored or as the
// generic types a JSON round-trip produces; both are accepted.

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}

func asStrings(v any) []string {
	switch vs := v.(type) {
	case []string:
		out := make([]string, len(vs))
		copy(out, vs)
		return out
	case []any:
		out := make([]string, 0, len(vs))
		for _, e := range vs {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
