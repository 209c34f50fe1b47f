package transfer

type GraphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	FbtraceID    string `json:"fbtrace_id"`
}

type GraphErrorResponse struct {
	Error *GraphError `json:"error"`
}

type GraphPaging struct {
	Next string `json:"next"`
}

type FacebookPage struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type FacebookPagesResponse struct {
	Data   []FacebookPage `json:"data"`
	Paging GraphPaging    `json:"paging"`
	Error  *GraphError    `json:"error"`
}

type PageIGAccountResponse struct {
	InstagramBusinessAccount *struct {
		ID string `json:"id"`
	} `json:"instagram_business_account"`
	Error *GraphError `json:"error"`
}

type IGMedia struct {
	ID        string `json:"id"`
	Permalink string `json:"permalink"`
	Timestamp string `json:"timestamp"`
}

type IGMediaListResponse struct {
	Data   []IGMedia   `json:"data"`
	Paging GraphPaging `json:"paging"`
	Error  *GraphError `json:"error"`
}

type IGMediaDetailResponse struct {
	ID            string      `json:"id"`
	LikeCount     int64       `json:"like_count"`
	CommentsCount int64       `json:"comments_count"`
	Error         *GraphError `json:"error"`
}

type IGInsightValue struct {
	Value int64 `json:"value"`
}

type IGInsight struct {
	Name   string           `json:"name"`
	Values []IGInsightValue `json:"values"`
}

type IGInsightsResponse struct {
	Data  []IGInsight `json:"data"`
	Error *GraphError `json:"error"`
}

type IGRefreshTokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	Error       *GraphError `json:"error"`
}
