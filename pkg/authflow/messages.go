package authflow

import (
	"errors"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const msgUnknown = "error.unknown"

var messages = map[string][2]string{ // key: {en, uk}
	"error." + string(KindInvalidCredentials):     {"Invalid email or password.", "Невірний email або пароль."},
	"error." + string(KindEmailUnverified):        {"Please confirm your email before signing in.", "Підтвердіть свою електронну пошту перед входом."},
	"error." + string(KindProviderError):          {"Sign in with the provider failed.", "Помилка входу через провайдера."},
	"error." + string(KindRegistrationError):      {"Registration failed.", "Помилка реєстрації."},
	"error." + string(KindReauthenticationFailed): {"The current password is incorrect.", "Поточний пароль невірний."},
	"error." + string(KindInvalidCode):            {"Invalid verification code.", "Невірний код підтвердження."},
	"error." + string(KindNotEnabled):             {"Two-factor authentication is not enabled.", "Двофакторну автентифікацію не увімкнено."},
	"error." + string(KindNoActiveUser):           {"You are not signed in.", "Ви не увійшли в систему."},
	"error." + string(KindNetworkFailure):         {"Network error. Please try again.", "Помилка мережі. Спробуйте ще раз."},
	"error." + string(KindServerSessionError):     {"Server session error.", "Помилка серверної сесії."},
	"error." + string(KindSecondFactorRequired):   {"Enter your verification code to continue.", "Введіть код підтвердження, щоб продовжити."},
	"error." + string(KindSignInInProgress):       {"Sign in is already in progress.", "Вхід уже виконується."},
	"error." + string(KindAlreadySignedIn):        {"You are already signed in. Sign out to create a new account.", "Ви вже увійшли. Вийдіть, щоб створити новий обліковий запис."},
	"error." + string(KindInvalidInput):           {"Please check the entered data.", "Перевірте введені дані."},

	"steam." + CodeSteamAuthFailed:       {"Steam sign in failed.", "Помилка входу через Steam."},
	"steam." + CodeTokenGenerationFailed: {"Could not create a sign in token.", "Не вдалося створити токен входу."},
	"steam." + CodeLogoutFailed:          {"Could not end the Steam session.", "Не вдалося завершити сесію Steam."},
	"steam." + CodeSessionDestroyFailed:  {"Could not clear the server session.", "Не вдалося очистити серверну сесію."},

	"input." + InputNameRequired:      {"Please enter your name.", "Введіть ім'я."},
	"input." + InputInvalidEmail:      {"Please enter a valid email.", "Введіть коректний email."},
	"input." + InputPasswordTooShort:  {"Password must be at least 6 characters.", "Пароль має містити щонайменше 6 символів."},
	"input." + InputPasswordsMismatch: {"Passwords do not match.", "Паролі не збігаються."},
	"input." + InputInvalidLanguage:   {"Unsupported language.", "Непідтримувана мова."},

	msgUnknown: {"Something went wrong.", "Щось пішло не так."},
}

var printers = buildPrinters()

func buildPrinters() map[language.Tag]*message.Printer {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, text := range messages {
		_ = b.SetString(language.English, key, text[0])
		_ = b.SetString(language.Ukrainian, key, text[1])
	}
	return map[language.Tag]*message.Printer{
		language.English:   message.NewPrinter(language.English, message.Catalog(b)),
		language.Ukrainian: message.NewPrinter(language.Ukrainian, message.Catalog(b)),
	}
}

// Localize returns a user facing message for err in lang. Languages other
// than Ukrainian get English.
func Localize(err error, lang string) string {
	if err == nil {
		return ""
	}
	p := printers[supported(lang)]

	var e *Error
	if !errors.As(err, &e) {
		return p.Sprintf(msgUnknown)
	}

	switch {
	case e.Kind == KindServerSessionError && e.Code != "":
		if key := "steam." + e.Code; has(key) {
			return p.Sprintf(key)
		}
	case e.Kind == KindInvalidInput && e.Code != "":
		if key := "input." + e.Code; has(key) {
			return p.Sprintf(key)
		}
	}
	if key := "error." + string(e.Kind); has(key) {
		return p.Sprintf(key)
	}
	return p.Sprintf(msgUnknown)
}

func has(key string) bool {
	_, ok := messages[key]
	return ok
}

func supported(lang string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return language.English
	}
	if base, _ := tag.Base(); base.String() == "uk" {
		return language.Ukrainian
	}
	return language.English
}
