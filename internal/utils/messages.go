package contextutils

// Site strings rendered by pages and returned by the navigation endpoint.
const (
	MsgBrand               MessageKey = "site.brand"
	MsgNavAbout            MessageKey = "nav.about"
	MsgNavServices         MessageKey = "nav.services"
	MsgNavShowcase         MessageKey = "nav.showcase"
	MsgNavProjects         MessageKey = "nav.projects"
	MsgNavQnA              MessageKey = "nav.qna"
	MsgNavBugReport        MessageKey = "nav.bug_report"
	MsgNavLogin            MessageKey = "nav.login"
	MsgNavLogout           MessageKey = "nav.logout"
	MsgNavLoginTooltip     MessageKey = "nav.login_tooltip"
	MsgLoginTitle          MessageKey = "login.title"
	MsgLoginFailed         MessageKey = "login.failed"
	MsgBugReportTitle      MessageKey = "bug_report.title"
	MsgBugReportSubmitted  MessageKey = "bug_report.submitted"
	MsgBugReportInsertFail MessageKey = "bug_report.insert_failed"
	MsgImageTooLargeTitle  MessageKey = "bug_report.image_too_large_title"
	MsgImageTypeTitle      MessageKey = "bug_report.image_type_title"
	MsgQnATitle            MessageKey = "qna.title"
	MsgQnASubmitted        MessageKey = "qna.submitted"
	MsgQnAInsertFail       MessageKey = "qna.insert_failed"
	MsgQnAFetchFail        MessageKey = "qna.fetch_failed"
	MsgQnAPending          MessageKey = "qna.pending"
	MsgQnAEmpty            MessageKey = "qna.empty"
	MsgSubmit              MessageKey = "form.submit"
	MsgSubmitting          MessageKey = "form.submitting"
	MsgErrorTitle          MessageKey = "toast.error"
	MsgHomeTagline         MessageKey = "home.tagline"
	MsgFieldTitle          MessageKey = "form.title"
	MsgFieldDescription    MessageKey = "form.description"
	MsgFieldImage          MessageKey = "form.image"
	MsgFieldSecret         MessageKey = "form.secret"
	MsgFieldQuestion       MessageKey = "form.question"
	MsgFieldUsername       MessageKey = "form.username"
	MsgFieldPassword       MessageKey = "form.password"
)

func registerSiteTexts(m *LocalizedMessages) {
	ko := map[MessageKey]string{
		MsgBrand:               "DevLense",
		MsgNavAbout:            "소개",
		MsgNavServices:         "서비스",
		MsgNavShowcase:         "작업 예시",
		MsgNavProjects:         "프로젝트",
		MsgNavQnA:              "회원 전용 Q&A",
		MsgNavBugReport:        "오류 수정",
		MsgNavLogin:            "로그인",
		MsgNavLogout:           "로그아웃",
		MsgNavLoginTooltip:     "로그인을 하시면 오류수정과 Q&A를 하실 수 있습니다.",
		MsgLoginTitle:          "로그인",
		MsgLoginFailed:         "로그인에 실패했습니다: %s",
		MsgBugReportTitle:      "오류 수정 요청",
		MsgBugReportSubmitted:  "제출 완료!",
		MsgBugReportInsertFail: "보고서 제출 중 오류가 발생했습니다. (에러: %s)",
		MsgImageTooLargeTitle:  "파일 크기 초과",
		MsgImageTypeTitle:      "잘못된 파일 형식",
		MsgQnATitle:            "회원 전용 Q&A",
		MsgQnASubmitted:        "질문이 성공적으로 제출되었습니다.",
		MsgQnAInsertFail:       "질문 제출 중 오류가 발생했습니다: %s",
		MsgQnAFetchFail:        "Q&A 목록을 불러오는 데 실패했습니다: %s",
		MsgQnAPending:          "답변을 기다리고 있습니다.",
		MsgQnAEmpty:            "아직 등록된 질문이 없습니다.",
		MsgSubmit:              "제출하기",
		MsgSubmitting:          "제출 중...",
		MsgErrorTitle:          "오류",
		MsgHomeTagline:         "아이디어를 동작하는 서비스로 만듭니다.",
		MsgFieldTitle:          "제목",
		MsgFieldDescription:    "내용",
		MsgFieldImage:          "이미지 첨부 (선택, 5MB 이하)",
		MsgFieldSecret:         "비밀글",
		MsgFieldQuestion:       "질문",
		MsgFieldUsername:       "아이디",
		MsgFieldPassword:       "비밀번호",
	}
	en := map[MessageKey]string{
		MsgBrand:               "DevLense",
		MsgNavAbout:            "About",
		MsgNavServices:         "Services",
		MsgNavShowcase:         "Showcase",
		MsgNavProjects:         "Projects",
		MsgNavQnA:              "Members Q&A",
		MsgNavBugReport:        "Bug report",
		MsgNavLogin:            "Log in",
		MsgNavLogout:           "Log out",
		MsgNavLoginTooltip:     "Log in to file bug reports and ask questions.",
		MsgLoginTitle:          "Log in",
		MsgLoginFailed:         "Login failed: %s",
		MsgBugReportTitle:      "Report a bug",
		MsgBugReportSubmitted:  "Submitted!",
		MsgBugReportInsertFail: "The report could not be submitted. (error: %s)",
		MsgImageTooLargeTitle:  "File too large",
		MsgImageTypeTitle:      "Wrong file type",
		MsgQnATitle:            "Members Q&A",
		MsgQnASubmitted:        "Your question was submitted.",
		MsgQnAInsertFail:       "The question could not be submitted: %s",
		MsgQnAFetchFail:        "Failed to load Q&A: %s",
		MsgQnAPending:          "Waiting for an answer.",
		MsgQnAEmpty:            "No questions yet.",
		MsgSubmit:              "Submit",
		MsgSubmitting:          "Submitting...",
		MsgErrorTitle:          "Error",
		MsgHomeTagline:         "Turning ideas into working services.",
		MsgFieldTitle:          "Title",
		MsgFieldDescription:    "Description",
		MsgFieldImage:          "Image (optional, up to 5MB)",
		MsgFieldSecret:         "Private",
		MsgFieldQuestion:       "Question",
		MsgFieldUsername:       "Username",
		MsgFieldPassword:       "Password",
	}
	for k, v := range ko {
		m.AddText(k, LocaleKorean, v)
	}
	for k, v := range en {
		m.AddText(k, LocaleEnglish, v)
	}
}
