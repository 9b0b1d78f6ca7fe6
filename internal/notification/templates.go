package notification

import "fmt"

// Message is a rendered email ready for the mailer.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// TemplateData feeds the render step.
type TemplateData struct {
	PlatformName string
	BusinessName string
	DocumentType string
	ExpiryDate   string
	UploadURL    string
}

// Render produces the email for a notification type. Unknown types get a
// generic reminder rather than failing dispatch.
func Render(typ Type, to string, data TemplateData) Message {
	switch typ {
	case TypeDepositConfirmation:
		return Message{
			To:      to,
			Subject: fmt.Sprintf("[%s] Document bien reçu", data.PlatformName),
			HTML: fmt.Sprintf(
				"<p>Bonjour %s,</p><p>Votre document <strong>%s</strong> a bien été reçu. Il est en cours de vérification.</p>",
				data.BusinessName, data.DocumentType),
		}
	case TypeExpiration30d:
		return expirationMessage(to, data, "expire dans 30 jours")
	case TypeExpiration7d:
		return expirationMessage(to, data, "expire dans 7 jours")
	case TypeExpiration1d:
		return expirationMessage(to, data, "expire demain")
	case TypeExpired:
		return Message{
			To:      to,
			Subject: fmt.Sprintf("[%s] Document expiré", data.PlatformName),
			HTML: fmt.Sprintf(
				"<p>Bonjour %s,</p><p>Votre document <strong>%s</strong> a expiré le %s. Merci de déposer un document à jour : <a href=\"%s\">%s</a></p>",
				data.BusinessName, data.DocumentType, data.ExpiryDate, data.UploadURL, data.UploadURL),
		}
	default:
		return Message{
			To:      to,
			Subject: fmt.Sprintf("[%s] Rappel concernant vos documents", data.PlatformName),
			HTML: fmt.Sprintf(
				"<p>Bonjour %s,</p><p>Une action est requise concernant vos documents justificatifs.</p>",
				data.BusinessName),
		}
	}
}

func expirationMessage(to string, data TemplateData, when string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("[%s] Votre document %s", data.PlatformName, when),
		HTML: fmt.Sprintf(
			"<p>Bonjour %s,</p><p>Votre document <strong>%s</strong> %s (le %s). Vous pouvez déposer un document à jour ici : <a href=\"%s\">%s</a></p>",
			data.BusinessName, data.DocumentType, when, data.ExpiryDate, data.UploadURL, data.UploadURL),
	}
}
