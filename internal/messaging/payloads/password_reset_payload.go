package payloads

// PasswordResetPayload представляет данные, необходимые для отправки письма
// со ссылкой на сброс пароля (напрямую или через RabbitMQ).
type PasswordResetPayload struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	ResetLink string `json:"reset_link"`
}
