package vivialtest

import (
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type bulk struct {
	id          string
	messageIDs  []int
	dateCreated string
	errors      int
}

func (s *Server) handleSendBulk(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > 0 {
		writeError(w, http.StatusBadRequest, "bulk messages are sent as query parameters")
		return
	}
	attrs := queryAttrs(r.URL.Query())
	numbers, _ := attrs["to_numbers"].([]any)
	if len(numbers) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": map[string]any{"message": "to_numbers is required", "param": "to_numbers"},
		})
		return
	}
	delete(attrs, "to_numbers")

	s.mu.Lock()
	b := &bulk{
		id:          uuid.NewString(),
		dateCreated: s.now().Format("2006-01-02T15:04:05"),
	}
	for _, n := range numbers {
		to, ok := n.(string)
		if !ok || to == "" {
			b.errors++
			continue
		}
		msg := copyAttrs(attrs)
		msg["to_number"] = to
		msg["bulk_id"] = b.id
		msg["account_id"] = s.accountIDValue()
		s.prepareMessage(msg)
		b.messageIDs = append(b.messageIDs, s.insert("messages", msg))
	}
	s.bulks = append(s.bulks, b)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"bulk_id": b.id})
}

// queryAttrs folds bracketed query keys back into values: key[0], key[1]
// become a list in index order and key[name] becomes a map.
func queryAttrs(q url.Values) map[string]any {
	attrs := make(map[string]any, len(q))
	lists := make(map[string]map[int]string)
	for key, values := range q {
		if len(values) == 0 {
			continue
		}
		open := strings.IndexByte(key, '[')
		if open <= 0 || !strings.HasSuffix(key, "]") {
			attrs[key] = values[0]
			continue
		}
		base, sub := key[:open], key[open+1:len(key)-1]
		if i, err := strconv.Atoi(sub); err == nil {
			if lists[base] == nil {
				lists[base] = make(map[int]string)
			}
			lists[base][i] = values[0]
			continue
		}
		m, _ := attrs[base].(map[string]any)
		if m == nil {
			m = make(map[string]any)
			attrs[base] = m
		}
		m[sub] = values[0]
	}
	for base, byIndex := range lists {
		indexes := make([]int, 0, len(byIndex))
		for i := range byIndex {
			indexes = append(indexes, i)
		}
		sort.Ints(indexes)
		list := make([]any, 0, len(indexes))
		for _, i := range indexes {
			list = append(list, byIndex[i])
		}
		attrs[base] = list
	}
	return attrs
}

func (s *Server) handleListBulks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]any, 0, len(s.bulks))
	for _, b := range s.bulks {
		out = append(out, map[string]any{
			"bulk_id":        b.id,
			"total_messages": len(b.messageIDs) + b.errors,
			"processed":      len(b.messageIDs),
			"errors":         b.errors,
			"date_created":   b.dateCreated,
		})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"bulks": out})
}

func (s *Server) handleBulkMessages(w http.ResponseWriter, r *http.Request) {
	bulkID := chi.URLParam(r, "bulkID")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bulks {
		if b.id == bulkID {
			items := s.collection("messages").list(func(m map[string]any) bool {
				return m["bulk_id"] == bulkID
			})
			writeJSON(w, http.StatusOK, map[string]any{"messages": items})
			return
		}
	}
	writeError(w, http.StatusNotFound, "bulk not found")
}

// attachmentOwner checks the parent message exists. Callers hold s.mu.
func (s *Server) attachmentOwner(r *http.Request) (int, bool) {
	messageID := chi.URLParam(r, "messageID")
	if _, ok := s.collection("messages").get(messageID); !ok {
		return 0, false
	}
	id, _ := strconv.Atoi(messageID)
	return id, true
}

func (s *Server) handleListAttachments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	messageID, ok := s.attachmentOwner(r)
	if !ok {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	items := s.collection("attachments").list(func(a map[string]any) bool {
		id, _ := asInt(a["message_id"])
		return id == messageID
	})
	writeJSON(w, http.StatusOK, map[string]any{"attachments": items})
}

func (s *Server) handleCountAttachments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	messageID, ok := s.attachmentOwner(r)
	if !ok {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	items := s.collection("attachments").list(func(a map[string]any) bool {
		id, _ := asInt(a["message_id"])
		return id == messageID
	})
	writeJSON(w, http.StatusOK, map[string]any{"count": len(items)})
}

func (s *Server) handleCreateAttachment(w http.ResponseWriter, r *http.Request) {
	attrs, err := decodeRoot(r, "attachment")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	messageID, ok := s.attachmentOwner(r)
	if !ok {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	delete(attrs, "id")
	attrs["message_id"] = messageID
	attrs["account_id"] = s.accountIDValue()
	id := s.insert("attachments", attrs)
	item, _ := s.collection("attachments").get(strconv.Itoa(id))
	writeJSON(w, http.StatusCreated, map[string]any{"attachment": copyAttrs(item)})
}

// ownedAttachment returns the attachment only when it belongs to the
// message in the path. Callers hold s.mu.
func (s *Server) ownedAttachment(r *http.Request) (map[string]any, bool) {
	messageID, ok := s.attachmentOwner(r)
	if !ok {
		return nil, false
	}
	item, ok := s.collection("attachments").get(chi.URLParam(r, "id"))
	if !ok {
		return nil, false
	}
	owner, _ := asInt(item["message_id"])
	return item, owner == messageID
}

func (s *Server) handleGetAttachment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.ownedAttachment(r)
	if !ok {
		writeError(w, http.StatusNotFound, "attachment not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attachment": copyAttrs(item)})
}

func (s *Server) handleUpdateAttachment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, ok := s.ownedAttachment(r)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "attachment not found")
		return
	}
	s.updateElement(w, r, "attachments", chi.URLParam(r, "id"))
}

func (s *Server) handleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ownedAttachment(r); !ok {
		writeError(w, http.StatusNotFound, "attachment not found")
		return
	}
	s.collection("attachments").remove(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAvailableNumbers(w http.ResponseWriter, r *http.Request) {
	country := chi.URLParam(r, "country")
	numberType := chi.URLParam(r, "numberType")
	q := r.URL.Query()

	s.mu.Lock()
	out := make([]any, 0, len(s.numberPool))
	for _, n := range s.numberPool {
		if c, _ := n["country_code"].(string); c != "" && c != country {
			continue
		}
		if t, _ := n["phone_number_type"].(string); t != "" && t != numberType {
			continue
		}
		if area := q.Get("area_code"); area != "" && n["area_code"] != area {
			continue
		}
		if region := q.Get("in_region"); region != "" && n["region"] != region {
			continue
		}
		if contains := q.Get("contains"); contains != "" {
			if p, _ := n["phone_number"].(string); !strings.Contains(p, contains) {
				continue
			}
		}
		out = append(out, copyAttrs(n))
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"phone_numbers": limitItems(r, out)})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone_number")
	if phone == "" {
		writeError(w, http.StatusBadRequest, "phone_number is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"number_info": map[string]any{
			"phone_number": phone,
			"date_created": s.now().Format("2006-01-02T15:04:05"),
			"carrier":      map[string]any{"name": "Test Wireless", "type": "mobile"},
			"device":       map[string]any{"model": "", "manufacturer": ""},
		},
	})
}

// handleTaggedNumbers filters owned numbers by tag. Filters arrive as
// contains=key:value,key:value and the same form for notcontains.
func (s *Server) handleTaggedNumbers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	contains := tagFilter(q.Get("contains"))
	notContains := tagFilter(q.Get("notcontains"))

	s.mu.Lock()
	items := s.collection("phone_numbers").list(func(n map[string]any) bool {
		tags, _ := n["tags"].(map[string]any)
		if len(tags) == 0 {
			return false
		}
		for k, v := range contains {
			if tags[k] != v {
				return false
			}
		}
		for k, v := range notContains {
			if tags[k] == v {
				return false
			}
		}
		return true
	})
	s.mu.Unlock()

	items = limitItems(r, items)
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func tagFilter(raw string) map[string]string {
	out := map[string]string{}
	if raw == "" {
		return out
	}
	for _, pair := range strings.Split(raw, ",") {
		k, v, _ := strings.Cut(pair, ":")
		out[k] = v
	}
	return out
}

func (s *Server) handleRemoveTag(w http.ResponseWriter, r *http.Request) {
	attrs, err := decodeRoot(r, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	remove, _ := attrs["tags"].(map[string]any)

	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.collection("phone_numbers").get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "phone_number not found")
		return
	}
	tags, _ := item["tags"].(map[string]any)
	for k := range remove {
		delete(tags, k)
	}
	writeJSON(w, http.StatusOK, map[string]any{"phone_number": copyAttrs(item)})
}

func credentialsKey(userID string) string {
	return "users/" + userID + "/credentials"
}

// credentialUser checks the owning user exists. Callers hold s.mu.
func (s *Server) credentialUser(r *http.Request) (string, bool) {
	userID := chi.URLParam(r, "userID")
	_, ok := s.collection("users").get(userID)
	return userID, ok
}

func (s *Server) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.credentialUser(r)
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	items := s.collection(credentialsKey(userID)).list(nil)
	writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"credentials": items}})
}

func (s *Server) handleCountCredentials(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.credentialUser(r)
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(s.collection(credentialsKey(userID)).order)})
}

func (s *Server) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.credentialUser(r)
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	item, ok := s.collection(credentialsKey(userID)).get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "credential not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"credential": copyAttrs(item)}})
}

// credentialBody unwraps {"user": {"credential": {...}}}
func credentialBody(r *http.Request) (map[string]any, error) {
	body, err := decodeRoot(r, "user")
	if err != nil {
		return nil, err
	}
	if inner, ok := body["credential"].(map[string]any); ok {
		return inner, nil
	}
	return body, nil
}

func (s *Server) handleCreateCredential(w http.ResponseWriter, r *http.Request) {
	attrs, err := credentialBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.credentialUser(r)
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	delete(attrs, "id")
	key := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	attrs["api_key"] = key
	attrs["api_secret"] = strings.ToLower(key)
	id := s.insert(credentialsKey(userID), attrs)
	item, _ := s.collection(credentialsKey(userID)).get(strconv.Itoa(id))
	writeJSON(w, http.StatusCreated, map[string]any{"user": map[string]any{"credential": copyAttrs(item)}})
}

func (s *Server) handleUpdateCredential(w http.ResponseWriter, r *http.Request) {
	attrs, err := credentialBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.credentialUser(r)
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	c := s.collection(credentialsKey(userID))
	item, ok := c.get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "credential not found")
		return
	}
	for k, v := range attrs {
		if k == "id" || k == "api_key" || k == "api_secret" {
			continue
		}
		item[k] = v
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"credential": copyAttrs(item)}})
}

func (s *Server) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.credentialUser(r)
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if !s.collection(credentialsKey(userID)).remove(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "credential not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLogs pages through log items ordered by their position. The last
// key is the index of the final item returned.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("start_time") == "" || q.Get("end_time") == "" {
		writeError(w, http.StatusBadRequest, "start_time and end_time are required")
		return
	}
	start := 0
	if key := q.Get("start_key"); key != "" {
		n, err := strconv.Atoi(key)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_key")
			return
		}
		start = n + 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	logType := q.Get("log_type")

	s.mu.Lock()
	var items []any
	lastKey := ""
	for i := start; i < len(s.logs); i++ {
		if logType != "" && s.logs[i]["log_type"] != logType {
			continue
		}
		items = append(items, copyAttrs(s.logs[i]))
		if limit > 0 && len(items) == limit {
			if i < len(s.logs)-1 {
				lastKey = strconv.Itoa(i)
			}
			break
		}
	}
	s.mu.Unlock()

	if items == nil {
		items = []any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"log_items": items, "last_key": lastKey})
}

// handleAggregateLogs counts log items per log type.
func (s *Server) handleAggregateLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	aggregator := q.Get("aggregator_type")
	if aggregator == "" {
		writeError(w, http.StatusBadRequest, "aggregator_type is required")
		return
	}
	logType := q.Get("log_type")

	s.mu.Lock()
	counts := map[string]int{}
	for _, l := range s.logs {
		t, _ := l["log_type"].(string)
		if logType != "" && t != logType {
			continue
		}
		counts[t]++
	}
	s.mu.Unlock()

	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)

	stamp, _ := strconv.ParseInt(s.now().Format("200601021504"), 10, 64)
	items := make([]any, 0, len(types))
	for _, t := range types {
		items = append(items, map[string]any{
			"account_id":          s.AccountID,
			"account_id_log_type": s.AccountID + "-" + t,
			"aggregate_key":       aggregator,
			"log_count":           counts[t],
			"log_timestamp":       stamp,
			"log_type":            t,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"log_items": items, "last_key": ""})
}
