package hmc

// logonRequest is the body of POST /api/sessions
type logonRequest struct {
	UserID   string `json:"userid"`
	Password string `json:"password"`
}

// logonResponse is the result of POST /api/sessions
type logonResponse struct {
	SessionID         string `json:"api-session"`
	NotificationTopic string `json:"notification-topic"`
	APIMajorVersion   int    `json:"api-major-version"`
	APIMinorVersion   int    `json:"api-minor-version"`
}

// errorResponse is the body of an error response
type errorResponse struct {
	Status  int    `json:"http-status"`
	Reason  int    `json:"reason"`
	Message string `json:"message"`
}

type objectInfo struct {
	URI  string `json:"object-uri"`
	Name string `json:"name"`
}

type cpcListResponse struct {
	CPCs []objectInfo `json:"cpcs"`
}

type cpcProperties struct {
	Name       string `json:"name"`
	DPMEnabled bool   `json:"dpm-enabled"`
}

type partitionListResponse struct {
	Partitions []objectInfo `json:"partitions"`
}

type lparListResponse struct {
	LogicalPartitions []objectInfo `json:"logical-partitions"`
}

type openChannelRequest struct {
	IncludeRefreshMessages bool `json:"include-refresh-messages"`
}

type openChannelResponse struct {
	TopicName string `json:"topic-name"`
}

type topicInfo struct {
	TopicName string `json:"topic-name"`
	TopicType string `json:"topic-type"`
	ObjectURI string `json:"object-uri"`
}

type topicsResponse struct {
	Topics []topicInfo `json:"topics"`
}

// topicTypeOSMessage is the topic type of OS message channels
const topicTypeOSMessage = "os-message-notification"
